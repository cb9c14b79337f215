package model

// Zone classifies a reservoir's current level against its configured
// boundary levels. The active zone selects which release rule applies.
type Zone int

const (
	ZoneDead Zone = iota
	ZoneNormal
	ZoneFloodControl
	ZoneSurcharge
)

func (z Zone) String() string {
	switch z {
	case ZoneDead:
		return "DEAD"
	case ZoneNormal:
		return "NORMAL"
	case ZoneFloodControl:
		return "FLOOD_CONTROL"
	case ZoneSurcharge:
		return "SURCHARGE"
	default:
		return "UNKNOWN"
	}
}

// Zones lists all zones in ascending level order.
func Zones() []Zone {
	return []Zone{ZoneDead, ZoneNormal, ZoneFloodControl, ZoneSurcharge}
}
