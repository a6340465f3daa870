// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Any valid access token
	SecurityAdmin                       // Access token with the ADMIN role
)

// Route names registered on the HTTP router.
const (
	RouteHealth               = "health"
	RoutePaymentCallback      = "payment-callback"
	RoutePaymentCallbackDev   = "payment-callback-dev"
	RouteStorageDownload      = "storage-download"
	RouteApproveApplication   = "approve-application"
	RouteRejectApplication    = "reject-application"
	RouteListApplications     = "list-applications"
	RouteDeleteApplication    = "delete-application"
	RouteGetApplication       = "get-application"
	RouteRemoveParticipant    = "remove-participant"
	RoutePreviewDocument      = "preview-document"
	RouteListNotifications    = "list-notifications"
	RouteMarkNotificationRead = "mark-notification-read"
)

// EndpointSecurityConfig maps routes to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Public: health and gateway callbacks
	RouteHealth:             SecurityPublic,
	RoutePaymentCallback:    SecurityPublic,
	RoutePaymentCallbackDev: SecurityPublic,

	// Admin
	RouteApproveApplication: SecurityAdmin,
	RouteRejectApplication:  SecurityAdmin,
	RouteListApplications:   SecurityAdmin,
	RouteDeleteApplication:  SecurityAdmin,
	RoutePreviewDocument:    SecurityAdmin,

	// Access protected; ownership is checked by the service
	RouteGetApplication:       SecurityAccess,
	RouteStorageDownload:      SecurityAccess,
	RouteRemoveParticipant:    SecurityAccess,
	RouteListNotifications:    SecurityAccess,
	RouteMarkNotificationRead: SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecurityAdmin
}
