package avi

// DebugServiceEngine sets debug flags on the service engines of a group.
// The name matches the service engine group.
type DebugServiceEngine struct {
	Name string `avi:"required"`

	CPUShares    []map[string]interface{} `name:"cpu_shares"`
	Flags        []map[string]interface{}
	SeagentDebug []map[string]interface{} `name:"seagent_debug"`

	TenantRef *string `validate:"omitempty,avi_ref"`
	URL       *string `name:"url" avi:"readonly"`
	UUID      *string `name:"uuid" avi:"readonly"`
}

// Type implements resource.Definition.
func (*DebugServiceEngine) Type() string { return "debugserviceengine" }
