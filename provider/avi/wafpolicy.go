package avi

// WafPolicy is a web application firewall policy. Rules are organized in
// groups; CRS groups are created by the controller from the core rule set,
// pre and post groups are user defined and run before and after them.
type WafPolicy struct {
	Name        string `avi:"required"`
	Description *string

	Mode          *string `validate:"omitempty,oneof=WAF_MODE_DETECTION_ONLY WAF_MODE_ENFORCEMENT"`
	ParanoiaLevel *string `validate:"omitempty,oneof=WAF_PARANOIA_LEVEL_LOW WAF_PARANOIA_LEVEL_MEDIUM WAF_PARANOIA_LEVEL_HIGH WAF_PARANOIA_LEVEL_EXTREME"`

	CrsGroups     []WafRuleGroup
	PreCrsGroups  []WafRuleGroup
	PostCrsGroups []WafRuleGroup

	WafProfileRef *string `validate:"omitempty,avi_ref"`

	TenantRef *string `validate:"omitempty,avi_ref"`
	URL       *string `name:"url" avi:"readonly"`
	UUID      *string `name:"uuid" avi:"readonly"`
}

// Type implements resource.Definition.
func (*WafPolicy) Type() string { return "wafpolicy" }

// A WafRuleGroup is an ordered group of WAF rules.
type WafRuleGroup struct {
	Name   string `avi:"required"`
	Index  *int   `validate:"omitempty,gte=0"`
	Enable *bool

	Rules []WafRule

	// Rule exclusions, passed through as is.
	ExcludeList []map[string]interface{}
}

// A WafRule is a single ModSecurity rule.
type WafRule struct {
	Index       *int `validate:"omitempty,gte=0"`
	Enable      *bool
	Name        *string
	RuleID      *string `name:"rule_id"`
	Rule        *string
	Tags        []string
	Mode        *string `validate:"omitempty,oneof=WAF_MODE_DETECTION_ONLY WAF_MODE_ENFORCEMENT"`
	IsSensitive *bool

	ExcludeList []map[string]interface{}
}
