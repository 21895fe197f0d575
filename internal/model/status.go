package model

// Lifecycle status values for VPN resources.
const (
	StatusPendingCreate = "PENDING_CREATE"
	StatusPendingUpdate = "PENDING_UPDATE"
	StatusPendingDelete = "PENDING_DELETE"
	StatusActive        = "ACTIVE"
	StatusError         = "ERROR"
)
