package engagement

// Point values per engagement action. These are product constants shared with
// the client; changing them changes historical fairness, so they are not
// configurable at runtime.
const (
	PointsSend        = 5
	PointsRead        = 2
	PointsReact       = 1
	PointsFavorite    = 2
	PointsStreakBonus = 3
)

// Badge is one entry in the static badge table.
type Badge struct {
	ID        string
	Threshold int
}

// Badges is the badge table, threshold-ordered. A badge is granted the moment
// the point total reaches its threshold and is never taken back. streak_3 is
// gated on points alone, not on streak count; the clients depend on that
// behavior, odd as it reads.
var Badges = []Badge{
	{ID: "first_note", Threshold: 20},
	{ID: "streak_3", Threshold: 60},
	{ID: "milestone", Threshold: 100},
	{ID: "lover", Threshold: 250},
}
