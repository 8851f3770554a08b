package model

import "strconv"

// VvmType is the carrier-reported visual voicemail protocol flavour.
type VvmType string

const (
	VvmTypeOMTP VvmType = "vvm_type_omtp"
	VvmTypeCVVM VvmType = "vvm_type_cvvm"
)

// PhoneAccount identifies a subscription that carries visual voicemail.
type PhoneAccount struct {
	ID             string
	Name           string
	SubscriptionID int
	VvmType        VvmType

	// Interface is the OS network interface used for the cellular
	// network request. Empty means the default route.
	Interface string
}

// NetworkSpecifier returns the specifier used to pin a network request
// to this account's subscription.
func (a PhoneAccount) NetworkSpecifier() string {
	return strconv.Itoa(a.SubscriptionID)
}

// RequiresNetworkRequest reports whether a sync for this account must
// first acquire a dedicated cellular network. CVVM carriers are reached
// over the default network.
func (a PhoneAccount) RequiresNetworkRequest() bool {
	return a.VvmType != VvmTypeCVVM
}
