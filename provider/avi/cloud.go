package avi

// Cloud is an infrastructure the controller places service engines in.
//
// Exactly one *_configuration dict should be set, matching Vtype. The
// configurations are passed to the controller as is.
type Cloud struct {
	Name string `avi:"required"`

	// Cloud type.
	Vtype string `avi:"required" validate:"oneof=CLOUD_NONE CLOUD_VCENTER CLOUD_OPENSTACK CLOUD_AWS CLOUD_VCA CLOUD_APIC CLOUD_MESOS CLOUD_LINUXSERVER CLOUD_DOCKER_UCP CLOUD_RANCHER CLOUD_OSHIFT_K8S CLOUD_AZURE CLOUD_GCP"`

	ApicConfiguration        map[string]interface{}
	ApicMode                 *bool
	AwsConfiguration         map[string]interface{}
	CloudstackConfiguration  map[string]interface{}
	DockerConfiguration      map[string]interface{}
	LinuxserverConfiguration map[string]interface{}
	MesosConfiguration       map[string]interface{}
	OpenstackConfiguration   map[string]interface{}
	Oshiftk8sConfiguration   map[string]interface{} `name:"oshiftk8s_configuration"`
	ProxyConfiguration       map[string]interface{}
	RancherConfiguration     map[string]interface{}
	VcaConfiguration         map[string]interface{}
	VcenterConfiguration     map[string]interface{}

	DhcpEnabled           *bool
	EnableVipStaticRoutes *bool
	PreferStaticRoutes    *bool

	DNSProviderRef          *string `name:"dns_provider_ref" validate:"omitempty,avi_ref"`
	EastWestDNSProviderRef  *string `name:"east_west_dns_provider_ref" validate:"omitempty,avi_ref"`
	EastWestIpamProviderRef *string `validate:"omitempty,avi_ref"`
	IpamProviderRef         *string `validate:"omitempty,avi_ref"`

	// License enforcement. If not set, the controller picks one based on
	// the cloud type.
	LicenseType *string `validate:"omitempty,oneof=LIC_BACKEND_SERVERS LIC_SOCKETS LIC_CORES LIC_HOSTS LIC_SE_BANDWIDTH"`

	Mtu           *int `validate:"omitempty,gte=512,lte=9000"`
	ObjNamePrefix *string

	TenantRef *string `validate:"omitempty,avi_ref"`
	URL       *string `name:"url" avi:"readonly"`
	UUID      *string `name:"uuid" avi:"readonly"`
}

// Type implements resource.Definition.
func (*Cloud) Type() string { return "cloud" }
