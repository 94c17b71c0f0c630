package dmem

// Report is the usage snapshot both the reentrant and legacy reporting
// surfaces fill in.
type Report struct {
	FreeBytes   uint32
	MaxUsage    uint32
	InitialFree uint32
	UsedCount   uint32
}

// ReadReport fills out with the pool's current counters, under the lock.
// used_count is obtained by walking from head up to (but not including)
// tail and counting used blocks, the same O(n) walk as the reference
// allocator's dmem_read_use_report().
func (p *Pool) ReadReport(out *Report) {
	p.cfg.Locker.Lock()
	defer p.cfg.Locker.Unlock()
	p.fillReport(out)
}

func (p *Pool) fillReport(out *Report) {
	out.FreeBytes = p.freeBytes
	out.MaxUsage = p.maxUsage
	out.InitialFree = p.initialFree

	used := uint32(0)
	for pos := p.headOffset; pos != p.tailOffset; pos = p.next(pos) {
		if p.isUsed(pos) {
			used++
		}
	}
	out.UsedCount = used

	if p.metrics != nil {
		p.metrics.refresh(*out)
	}
}

// LegacyReport refreshes and returns a pointer to a report owned by this
// Pool, the non-reentrant counterpart to ReadReport kept behind
// Config.LegacyReportAPI for parity with the reference allocator's
// dmem_get_use_report(). It returns nil when the legacy API is disabled.
//
// The returned pointer aliases Pool-owned storage and is only valid until
// the next LegacyReport call on the same pool; callers that need a stable
// snapshot should use ReadReport instead.
func (p *Pool) LegacyReport() *Report {
	if !p.cfg.LegacyReportAPI {
		return nil
	}
	p.cfg.Locker.Lock()
	defer p.cfg.Locker.Unlock()
	p.fillReport(&p.legacyReport)
	return &p.legacyReport
}
