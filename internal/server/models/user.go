package models

import "time"

// User is the internal identity record for one external subject.
type User struct {
	ID              string
	ExternalSubject string
	Email           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
