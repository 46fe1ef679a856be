// internal/status/snapshot.go
package status

import "fmt"

// Snapshot is the node health surface exposed for display and
// telemetry. It contains no logic and no memory of the past beyond
// current state.
type Snapshot struct {
	Stored      int
	Capacity    int
	SyncedTotal int
	TimeSynced  bool
}

// Encode renders the snapshot as the STATUS channel line payload.
func Encode(s Snapshot) string {
	t := "time=unsynced"
	if s.TimeSynced {
		t = "time=ok"
	}
	return fmt.Sprintf("stored=%d/%d synced=%d %s", s.Stored, s.Capacity, s.SyncedTotal, t)
}
