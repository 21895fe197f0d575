package core

type Services struct {
	APIKey       *APIKeyService
	Rule         *RuleService
	IPObj        *IPObjService
	ServiceObj   *ServiceObjService
	Zone         *ZoneService
	Site         *SiteService
	IPSecPolicy  *IPSecPolicyService
	IsakmpPolicy *IsakmpPolicyService
	TrustProfile *TrustProfileService
}

// NewServices wires every service to one store and one edge. db backs the
// API key lookups, which run outside the resource transactions.
func NewServices(db DB, store Store, edge EdgeSync) *Services {
	return &Services{
		APIKey:       NewAPIKeyService(db),
		Rule:         NewRuleService(store, edge),
		IPObj:        NewIPObjService(store, edge),
		ServiceObj:   NewServiceObjService(store, edge),
		Zone:         NewZoneService(store),
		Site:         NewSiteService(store, edge),
		IPSecPolicy:  NewIPSecPolicyService(store, edge),
		IsakmpPolicy: NewIsakmpPolicyService(store, edge),
		TrustProfile: NewTrustProfileService(store, edge),
	}
}
