package killer

// Resolve picks the package the user most recently brought to the
// foreground. Only records whose last event is EventForeground are
// candidates. Records sharing a timestamp are unordered: whichever is seen
// first wins, and callers must not depend on that.
func Resolve(records []UsageRecord, protected ProtectedSet) KillDecision {
	var (
		best  UsageRecord
		found bool
	)

	for _, rec := range records {
		if rec.LastEventType != EventForeground || rec.PackageID == "" {
			continue
		}
		if !found || rec.LastUsed > best.LastUsed {
			best = rec
			found = true
		}
	}

	if !found {
		return KillDecision{Skipped: true, Reason: ReasonNoneFound}
	}

	if protected.Contains(best.PackageID) {
		return KillDecision{
			DisplayName: best.PackageID,
			Skipped:     true,
			Reason:      ReasonProtected,
		}
	}

	return KillDecision{
		TargetPackageID: best.PackageID,
		Reason:          ReasonNone,
	}
}
