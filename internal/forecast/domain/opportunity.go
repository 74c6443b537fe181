package domain

import "time"

// Opportunity is read by the core but owned by the upstream loader; the core
// never creates, mutates, or deletes one.
type Opportunity struct {
	ID            string
	TCV           float64
	DecisionDate  *time.Time
	SalesStage    Stage
	LeadOffering  *ServiceLine
	RevenueSplit  map[ServiceLine]float64
}

// RevenueFor returns the opportunity's revenue split for sl, or zero if the
// split is absent. A negative or missing TCV does not affect this lookup;
// it only governs category resolution.
func (o *Opportunity) RevenueFor(sl ServiceLine) float64 {
	if o.RevenueSplit == nil {
		return 0
	}
	return o.RevenueSplit[sl]
}

// Eligible reports whether the opportunity carries the minimum data the
// scheduler needs to run at all: a decision date. Category resolvability and
// per-service-line schedulability are checked separately.
func (o *Opportunity) Eligible() bool {
	return o.DecisionDate != nil
}

// OpportunityLineItem is a child record of an opportunity, keyed by the
// (internal_service, simplified_offering) pair used by the offering
// multiplier. Other monetary fields on the original record are not modeled
// here because the core never reads them.
type OpportunityLineItem struct {
	OpportunityID      string
	InternalService    string
	SimplifiedOffering string
}
