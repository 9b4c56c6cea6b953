package models

import "time"

// Backup describes one timestamped config snapshot on disk
type Backup struct {
	Path      string
	Name      string
	CreatedAt time.Time
}
