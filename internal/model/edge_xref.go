package model

// XRefKind names the class of object an edge cross-reference belongs to.
type XRefKind string

const (
	XRefIPObj      XRefKind = "ipobj"
	XRefServiceObj XRefKind = "serviceobj"
	XRefRule       XRefKind = "rule"
)

// EdgeXRef maps an internal object id to the id the edge device assigned it.
type EdgeXRef struct {
	Kind     XRefKind `json:"kind" db:"kind"`
	UUID     string   `json:"uuid" db:"uuid"`
	DeviceID string   `json:"device_id" db:"device_id"`
}
