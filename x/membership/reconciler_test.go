package membership

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/totegamma/groupsync/core"
)

const groupID = "g0000000000000000000000000000000"

func claimEvent(id, author string, kind int, createdAt int64, role string) core.Event {
	tags := [][]string{{"e", groupID}}
	if role != "" {
		tags = append(tags, []string{"role", role})
	}
	return core.Event{
		ID:        id,
		PubKey:    author,
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      tags,
	}
}

func sampleEvents() []core.Event {
	return []core.Event{
		{ID: groupID, PubKey: "A", CreatedAt: 100, Kind: core.KindGroupMetadata, Content: `{"name":"G"}`},
		claimEvent("b1", "B", core.KindGroupMember, 200, ""),
		claimEvent("b2", "B", core.KindGroupAdmin, 300, ""),
		claimEvent("c1", "C", core.KindGroupMember, 150, "member"),
		claimEvent("c2", "C", core.KindGroupMember, 250, "removed"),
		claimEvent("d1", "D", core.KindGroupMember, 250, "member"),
		claimEvent("d2", "D", core.KindGroupMember, 250, "admin"),
		claimEvent("e1", "E", core.KindGroupMember, 400, "admin"),
		claimEvent("e0", "E", core.KindGroupAdmin, 120, ""),
	}
}

func TestReconcileScenario(t *testing.T) {
	snapshot := Reconcile(groupID, sampleEvents()[:3])

	assert.Equal(t, groupID, snapshot.GroupID)
	assert.Equal(t, 1, snapshot.Size)
	assert.NotContains(t, snapshot.Entries, "A")
	assert.Equal(t, core.Membership{Role: core.RoleAdmin, AddedAt: 300, EventID: "b2"}, snapshot.Entries["B"])
}

func TestReconcileRoles(t *testing.T) {
	snapshot := Reconcile(groupID, sampleEvents())

	assert.Equal(t, core.RoleRemoved, snapshot.Entries["C"].Role)
	assert.Equal(t, int64(250), snapshot.Entries["C"].AddedAt)

	// same createdAt, the lexically greater id wins
	assert.Equal(t, core.RoleAdmin, snapshot.Entries["D"].Role)
	assert.Equal(t, "d2", snapshot.Entries["D"].EventID)

	assert.Equal(t, core.RoleAdmin, snapshot.Entries["E"].Role)
	assert.Equal(t, int64(400), snapshot.Entries["E"].AddedAt)

	assert.Equal(t, 3, snapshot.Size)
	assert.Equal(t, []string{"B", "D", "E"}, snapshot.Members())
	assert.Equal(t, []string{"B", "D", "E"}, snapshot.Admins())

	_, ok := snapshot.RoleOf("C")
	assert.False(t, ok)
	role, ok := snapshot.RoleOf("B")
	assert.True(t, ok)
	assert.Equal(t, core.RoleAdmin, role)
}

func TestReconcileIdempotent(t *testing.T) {
	events := sampleEvents()
	doubled := append(append([]core.Event{}, events...), events...)

	assert.Equal(t, Reconcile(groupID, events), Reconcile(groupID, doubled))
}

func TestReconcileOrderIndependent(t *testing.T) {
	events := sampleEvents()
	expected := Reconcile(groupID, events)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]core.Event{}, events...)
		r.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, expected, Reconcile(groupID, shuffled))
	}
}

func TestReconcileMonotonic(t *testing.T) {
	older := claimEvent("z9", "F", core.KindGroupAdmin, 10, "")
	newer := claimEvent("a1", "F", core.KindGroupMember, 11, "member")

	snapshot := Reconcile(groupID, []core.Event{newer, older})
	assert.Equal(t, core.RoleMember, snapshot.Entries["F"].Role)
	assert.Equal(t, int64(11), snapshot.Entries["F"].AddedAt)
}

func TestReconcileDedupeByID(t *testing.T) {
	first := claimEvent("x1", "G", core.KindGroupMember, 10, "member")
	// identical content under a new id is a real update
	resubmitted := claimEvent("x2", "G", core.KindGroupMember, 20, "member")

	snapshot := Reconcile(groupID, []core.Event{first, first, resubmitted})
	assert.Equal(t, 1, snapshot.Size)
	assert.Equal(t, int64(20), snapshot.Entries["G"].AddedAt)
}

func TestReconcileEmpty(t *testing.T) {
	snapshot := Reconcile(groupID, nil)
	assert.Equal(t, groupID, snapshot.GroupID)
	assert.Equal(t, 0, snapshot.Size)
	assert.Empty(t, snapshot.Entries)
	assert.NotNil(t, snapshot.Entries)
}

func TestReconcileIgnoresOtherGroups(t *testing.T) {
	other := core.Event{ID: "o1", PubKey: "H", CreatedAt: 10, Kind: core.KindGroupMember, Tags: [][]string{{"e", "other"}}}
	untagged := core.Event{ID: "o2", PubKey: "I", CreatedAt: 10, Kind: core.KindGroupAdmin}
	note := core.Event{ID: "o3", PubKey: "J", CreatedAt: 10, Kind: core.KindTextNote, Tags: [][]string{{"e", groupID}, {"t", "food"}}}

	snapshot := Reconcile(groupID, []core.Event{other, untagged, note})
	assert.Empty(t, snapshot.Entries)
}

func TestMergeMatchesFullReconcile(t *testing.T) {
	events := sampleEvents()
	for split := 0; split <= len(events); split++ {
		partial := Reconcile(groupID, events[:split])
		merged := Merge(partial, events[split:])
		assert.Equal(t, Reconcile(groupID, events), merged)
	}

	// replaying already applied events changes nothing
	full := Reconcile(groupID, events)
	assert.Equal(t, full, Merge(full, events))
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	base := Reconcile(groupID, sampleEvents()[:2])
	_ = Merge(base, []core.Event{claimEvent("b9", "B", core.KindGroupAdmin, 999, "")})
	assert.Equal(t, core.RoleMember, base.Entries["B"].Role)
}
