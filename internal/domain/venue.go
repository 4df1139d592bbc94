package domain

// VenueConfig is the static per-venue configuration: fee rates and whether the
// process holds trading credentials for it. Fixed for the process lifetime.
type VenueConfig struct {
	Name          string
	TakerFee      float64 // fraction of notional charged on market orders
	TransferFee   float64 // fraction lost moving funds out of the venue
	Authenticated bool    // true when trading credentials are configured
}

// FeeTable maps venue name to its static fee configuration. Detection rejects
// pairs involving venues absent from the table rather than assuming zero fees.
type FeeTable map[string]VenueConfig

// Lookup returns the venue's fee configuration and whether it exists.
func (t FeeTable) Lookup(venue string) (VenueConfig, bool) {
	vc, ok := t[venue]
	return vc, ok
}
