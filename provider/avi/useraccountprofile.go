package avi

// UserAccountProfile holds login and password policies for local users.
type UserAccountProfile struct {
	Name string `avi:"required"`

	// Lock timeout period in minutes.
	AccountLockTimeout *int `validate:"omitempty,gte=0"`

	// Days after which credentials expire.
	CredentialsTimeoutThreshold *int `validate:"omitempty,gte=0"`

	// Zero allows unlimited sessions.
	MaxConcurrentSessions   *int `validate:"omitempty,gte=0"`
	MaxLoginFailureCount    *int `validate:"omitempty,gte=0"`
	MaxPasswordHistoryCount *int `validate:"omitempty,gte=0"`

	TenantRef *string `validate:"omitempty,avi_ref"`
	URL       *string `name:"url" avi:"readonly"`
	UUID      *string `name:"uuid" avi:"readonly"`
}

// Type implements resource.Definition.
func (*UserAccountProfile) Type() string { return "useraccountprofile" }
