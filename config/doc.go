// Package config loads connection settings and desired-state files.
//
// Desired state is written in HCL or YAML. Both describe a list of
// controller objects by type and name:
//
//	resource "wafpolicy" "app-waf" {
//	  tenant = "prod"              # optional, default tenant otherwise
//	  state  = "present"           # or "absent"
//
//	  mode            = "WAF_MODE_ENFORCEMENT"
//	  waf_profile_ref = "/api/wafprofile?name=System-WAF-Profile"
//	}
//
//	resources:
//	  - type: wafpolicy
//	    name: app-waf
//	    mode: WAF_MODE_ENFORCEMENT
//
// Every other attribute is a field of the object. HCL attributes may call
// env("NAME") or env("NAME", "default") to read secrets from the
// environment instead of writing them to disk. A field set to
// {state = "absent"} is removed from the controller object.
package config
