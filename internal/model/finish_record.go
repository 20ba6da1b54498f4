package model

import "time"

// FinishRecord is one entry of the append-only finish journal.
type FinishRecord struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MachineID      string    `gorm:"index;size:64;not null" json:"machineId"`
	MachineName    string    `gorm:"size:256;not null" json:"machineName"`
	PreviousStatus string    `gorm:"size:32" json:"previousStatus"`
	Status         string    `gorm:"size:32;not null" json:"status"`
	Cycle          string    `gorm:"size:128" json:"cycle"`
	Notified       int       `gorm:"not null" json:"notified"`
	ObservedAt     time.Time `gorm:"index;not null" json:"observedAt"`
}
