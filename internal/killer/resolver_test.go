package killer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var desktopProtected = ProtectedSet{SystemUI: "gnome-shell", Home: "nautilus"}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		records    []UsageRecord
		wantTarget string
		wantReason Reason
	}{
		{
			name: "most recent foreground wins",
			records: []UsageRecord{
				{PackageID: "firefox", LastEventType: EventForeground, LastUsed: 1000},
				{PackageID: "code", LastEventType: EventForeground, LastUsed: 2000},
			},
			wantTarget: "code",
			wantReason: ReasonNone,
		},
		{
			name: "only candidate is home",
			records: []UsageRecord{
				{PackageID: "nautilus", LastEventType: EventForeground, LastUsed: 500},
			},
			wantReason: ReasonProtected,
		},
		{
			name:       "empty history",
			records:    nil,
			wantReason: ReasonNoneFound,
		},
		{
			name: "no foreground records",
			records: []UsageRecord{
				{PackageID: "firefox", LastEventType: EventBackground, LastUsed: 3000},
				{PackageID: "code", LastEventType: EventOther, LastUsed: 4000},
			},
			wantReason: ReasonNoneFound,
		},
		{
			name: "newer background record is ignored",
			records: []UsageRecord{
				{PackageID: "firefox", LastEventType: EventForeground, LastUsed: 1000},
				{PackageID: "code", LastEventType: EventBackground, LastUsed: 9000},
			},
			wantTarget: "firefox",
			wantReason: ReasonNone,
		},
		{
			name: "most recent is system ui",
			records: []UsageRecord{
				{PackageID: "firefox", LastEventType: EventForeground, LastUsed: 1000},
				{PackageID: "gnome-shell", LastEventType: EventForeground, LastUsed: 2000},
			},
			wantReason: ReasonProtected,
		},
		{
			name: "protected match ignores case",
			records: []UsageRecord{
				{PackageID: "Nautilus", LastEventType: EventForeground, LastUsed: 2000},
			},
			wantReason: ReasonProtected,
		},
		{
			name: "empty package id is skipped",
			records: []UsageRecord{
				{PackageID: "", LastEventType: EventForeground, LastUsed: 5000},
				{PackageID: "firefox", LastEventType: EventForeground, LastUsed: 1000},
			},
			wantTarget: "firefox",
			wantReason: ReasonNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.records, desktopProtected)
			assert.Equal(t, tt.wantTarget, got.TargetPackageID)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, tt.wantTarget == "", got.Skipped)
		})
	}
}

func TestResolveSelectsMaximumForeground(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	types := []EventType{EventForeground, EventBackground, EventOther}

	for i := 0; i < 200; i++ {
		n := rng.Intn(20)
		records := make([]UsageRecord, n)
		var (
			maxTS   int64 = -1
			winners       = map[string]bool{}
		)
		for j := range records {
			records[j] = UsageRecord{
				PackageID:     string(rune('a' + j)),
				LastEventType: types[rng.Intn(len(types))],
				LastUsed:      int64(rng.Intn(50)),
			}
		}
		for _, r := range records {
			if r.LastEventType != EventForeground {
				continue
			}
			if r.LastUsed > maxTS {
				maxTS = r.LastUsed
				winners = map[string]bool{r.PackageID: true}
			} else if r.LastUsed == maxTS {
				winners[r.PackageID] = true
			}
		}

		got := Resolve(records, ProtectedSet{})
		if maxTS < 0 {
			assert.False(t, got.HasTarget())
			assert.Equal(t, ReasonNoneFound, got.Reason)
			continue
		}
		assert.True(t, winners[got.TargetPackageID], "iteration %d picked %q", i, got.TargetPackageID)
	}
}

func TestProtectedSetContains(t *testing.T) {
	p := ProtectedSet{SystemUI: "gnome-shell"}

	assert.True(t, p.Contains("gnome-shell"))
	assert.True(t, p.Contains("Gnome-Shell"))
	assert.False(t, p.Contains("firefox"))
	assert.False(t, p.Contains(""), "empty home must not protect the empty package")
}

func TestReasonText(t *testing.T) {
	for r := ReasonNone; r <= ReasonRemoteFailure; r++ {
		text, err := r.MarshalText()
		require.NoError(t, err)

		var back Reason
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, r, back)
	}

	var r Reason
	assert.Error(t, r.UnmarshalText([]byte("bogus")))
}
