package models

// SequenceModel stores the next value of a named ID sequence
type SequenceModel struct {
	Name      string `gorm:"type:varchar(50);primaryKey"`
	NextValue int64  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SequenceModel) TableName() string {
	return "id_sequences"
}
