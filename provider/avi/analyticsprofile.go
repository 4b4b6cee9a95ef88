package avi

// AnalyticsProfile configures how analytics, health scores and apdex are
// computed for virtual services, pools and service engines.
type AnalyticsProfile struct {
	// Unique name of the profile.
	Name string `avi:"required"`

	Description *string

	// Apdex thresholds are in milliseconds; a response slower than
	// threshold*factor is frustrated.
	ApdexResponseThreshold             *int     `validate:"omitempty,gte=1"`
	ApdexResponseToleratedFactor       *float64 `validate:"omitempty,gte=1,lte=1000"`
	ApdexRttThreshold                  *int     `validate:"omitempty,gte=1"`
	ApdexRttToleratedFactor            *float64 `validate:"omitempty,gte=1,lte=1000"`
	ApdexRumThreshold                  *int     `validate:"omitempty,gte=1"`
	ApdexRumToleratedFactor            *float64 `validate:"omitempty,gte=1,lte=1000"`
	ApdexServerResponseThreshold       *int     `validate:"omitempty,gte=1"`
	ApdexServerResponseToleratedFactor *float64 `validate:"omitempty,gte=1,lte=1000"`
	ApdexServerRttThreshold            *int     `validate:"omitempty,gte=1"`
	ApdexServerRttToleratedFactor      *float64 `validate:"omitempty,gte=1,lte=1000"`

	// Client log settings, passed through as is.
	ClientLogConfig map[string]interface{}

	// Connection lossy thresholds, as a percentage of packets.
	ConnLossyOooThreshold                    *int `validate:"omitempty,lte=100"`
	ConnLossyTimeoRexmtThreshold             *int `validate:"omitempty,lte=100"`
	ConnLossyTotalRexmtThreshold             *int `validate:"omitempty,lte=100"`
	ConnLossyZeroWinSizeEventThreshold       *int `validate:"omitempty,lte=100"`
	ConnServerLossyOooThreshold              *int `validate:"omitempty,lte=100"`
	ConnServerLossyTimeoRexmtThreshold       *int `validate:"omitempty,lte=100"`
	ConnServerLossyTotalRexmtThreshold       *int `validate:"omitempty,lte=100"`
	ConnServerLossyZeroWinSizeEventThreshold *int `validate:"omitempty,lte=100"`

	DisableSeAnalytics     *bool `name:"disable_se_analytics"`
	DisableServerAnalytics *bool

	ExcludeClientCloseBeforeRequestAsError *bool
	ExcludeGsDownAsError                   *bool
	ExcludeInvalidDNSDomainAsError         *bool `name:"exclude_invalid_dns_domain_as_error"`
	ExcludeInvalidDNSQueryAsError          *bool `name:"exclude_invalid_dns_query_as_error"`
	ExcludeNoDNSRecordAsError              *bool `name:"exclude_no_dns_record_as_error"`
	ExcludeNoValidGsMemberAsError          *bool
	ExcludePersistenceChangeAsError        *bool
	ExcludeServerTCPResetAsError           *bool `name:"exclude_server_tcp_reset_as_error"`
	ExcludeSynRetransmitAsError            *bool
	ExcludeTCPResetAsError                 *bool `name:"exclude_tcp_reset_as_error"`

	// HTTP status codes that are not counted as errors.
	ExcludeHTTPErrorCodes []int `name:"exclude_http_error_codes" validate:"dive,gte=400,lte=599"`

	// Health score tuning.
	HsEventThrottleWindow              *int     `validate:"omitempty,gte=0"`
	HsMaxAnomalyPenalty                *int     `validate:"omitempty,gte=0,lte=100"`
	HsMaxResourcesPenalty              *int     `validate:"omitempty,gte=0,lte=100"`
	HsMaxSecurityPenalty               *int     `validate:"omitempty,gte=0,lte=100"`
	HsMinDosRate                       *int     `name:"hs_min_dos_rate"`
	HsPerformanceBoost                 *int     `validate:"omitempty,gte=0,lte=100"`
	HsPscoreTrafficThresholdL4Client   *float64 `name:"hs_pscore_traffic_threshold_l4_client"`
	HsPscoreTrafficThresholdL4Server   *float64 `name:"hs_pscore_traffic_threshold_l4_server"`
	HsSecurityCertscoreExpired         *float64 `validate:"omitempty,gte=0,lte=5"`
	HsSecurityCertscoreGt30d           *float64 `name:"hs_security_certscore_gt30d" validate:"omitempty,gte=0,lte=5"`
	HsSecurityCertscoreLe07d           *float64 `name:"hs_security_certscore_le07d" validate:"omitempty,gte=0,lte=5"`
	HsSecurityCertscoreLe30d           *float64 `name:"hs_security_certscore_le30d" validate:"omitempty,gte=0,lte=5"`
	HsSecurityChainInvalidityPenalty   *float64 `validate:"omitempty,gte=0,lte=5"`
	HsSecurityCipherscoreEq000b        *float64 `name:"hs_security_cipherscore_eq000b" validate:"omitempty,gte=0,lte=5"`
	HsSecurityCipherscoreGe128b        *float64 `name:"hs_security_cipherscore_ge128b" validate:"omitempty,gte=0,lte=5"`
	HsSecurityCipherscoreLt128b        *float64 `name:"hs_security_cipherscore_lt128b" validate:"omitempty,gte=0,lte=5"`
	HsSecurityEncalgoScoreNone         *float64 `validate:"omitempty,gte=0,lte=5"`
	HsSecurityEncalgoScoreRc4          *float64 `name:"hs_security_encalgo_score_rc4" validate:"omitempty,gte=0,lte=5"`
	HsSecurityHstsPenalty              *float64 `validate:"omitempty,gte=0,lte=5"`
	HsSecurityNonpfsPenalty            *float64 `validate:"omitempty,gte=0,lte=5"`
	HsSecuritySelfsignedcertPenalty    *float64 `validate:"omitempty,gte=0,lte=5"`
	HsSecuritySsl30Score               *float64 `name:"hs_security_ssl30_score" validate:"omitempty,gte=0,lte=5"`
	HsSecurityTLS10Score               *float64 `name:"hs_security_tls10_score" validate:"omitempty,gte=0,lte=5"`
	HsSecurityTLS11Score               *float64 `name:"hs_security_tls11_score" validate:"omitempty,gte=0,lte=5"`
	HsSecurityTLS12Score               *float64 `name:"hs_security_tls12_score" validate:"omitempty,gte=0,lte=5"`
	HsSecurityWeakSignatureAlgoPenalty *float64 `validate:"omitempty,gte=0,lte=5"`

	TenantRef *string `validate:"omitempty,avi_ref"`
	URL       *string `name:"url" avi:"readonly"`
	UUID      *string `name:"uuid" avi:"readonly"`
}

// Type implements resource.Definition.
func (*AnalyticsProfile) Type() string { return "analyticsprofile" }
