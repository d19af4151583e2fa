package booking

import (
	"fmt"
	"strings"
	"time"
)

// FieldPatch is the allow-list of booking fields a caller may edit after
// creation. Nil means "leave unchanged". Identity, submission and audit
// fields are deliberately absent.
type FieldPatch struct {
	GroupName    *string
	GroupType    *string
	GroupSize    *int
	LeaderName   *string
	LeaderPhone  *string
	LeaderEmail  *string
	Arriving     *time.Time
	Departing    *time.Time
	Facilities   []string
	CostEstimate *int64
}

func (p FieldPatch) Empty() bool {
	return p.GroupName == nil && p.GroupType == nil && p.GroupSize == nil &&
		p.LeaderName == nil && p.LeaderPhone == nil && p.LeaderEmail == nil &&
		p.Arriving == nil && p.Departing == nil && p.Facilities == nil &&
		p.CostEstimate == nil
}

// Apply merges the patch into b, validates the merged booking, and commits
// only if valid. It returns one human-readable line per changed field for
// the notes log; fmtTime renders timestamps in the site timezone.
func (p FieldPatch) Apply(b *Booking, fmtTime func(time.Time) string) ([]string, error) {
	merged := *b
	var changes []string

	setStr := func(name string, dst *string, v *string) {
		if v != nil && *v != *dst {
			changes = append(changes, fmt.Sprintf("%s changed from [%s] to [%s]", name, *dst, *v))
			*dst = *v
		}
	}

	setStr("group_name", &merged.GroupName, p.GroupName)
	setStr("group_type", &merged.GroupType, p.GroupType)
	setStr("leader_name", &merged.LeaderName, p.LeaderName)
	setStr("leader_phone", &merged.LeaderPhone, p.LeaderPhone)
	setStr("leader_email", &merged.LeaderEmail, p.LeaderEmail)

	if p.GroupSize != nil && *p.GroupSize != merged.GroupSize {
		changes = append(changes, fmt.Sprintf("group_size changed from [%d] to [%d]", merged.GroupSize, *p.GroupSize))
		merged.GroupSize = *p.GroupSize
	}
	if p.CostEstimate != nil && *p.CostEstimate != merged.CostEstimate {
		changes = append(changes, fmt.Sprintf("cost_estimate changed from [%d] to [%d]", merged.CostEstimate, *p.CostEstimate))
		merged.CostEstimate = *p.CostEstimate
	}
	if p.Arriving != nil && !p.Arriving.Equal(merged.Arriving) {
		changes = append(changes, fmt.Sprintf("arriving changed from [%s] to [%s]", fmtTime(merged.Arriving), fmtTime(*p.Arriving)))
		merged.Arriving = *p.Arriving
	}
	if p.Departing != nil && !p.Departing.Equal(merged.Departing) {
		changes = append(changes, fmt.Sprintf("departing changed from [%s] to [%s]", fmtTime(merged.Departing), fmtTime(*p.Departing)))
		merged.Departing = *p.Departing
	}
	if p.Facilities != nil && !equalStrings(p.Facilities, merged.Facilities) {
		changes = append(changes, fmt.Sprintf("facilities changed from [%s] to [%s]",
			strings.Join(merged.Facilities, ","), strings.Join(p.Facilities, ",")))
		merged.Facilities = append([]string(nil), p.Facilities...)
	}

	if len(changes) == 0 {
		return nil, nil
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid edit: %w", err)
	}
	*b = merged
	return changes, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
