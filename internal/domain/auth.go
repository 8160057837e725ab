package domain

import "time"

// Token represents issued identity token metadata.
type Token struct {
	Subject   Identity
	Role      Role
	ExpiresAt time.Time
	IssuedAt  time.Time
}
