package domain

import "testing"

func TestMultiplierNoMappings(t *testing.T) {
	m := Multiplier(nil, nil, nil, ServiceLineMW)
	if m != 1.0 {
		t.Errorf("got %v, want 1.0", m)
	}
}

func TestMultiplierNoThresholdRow(t *testing.T) {
	mappings := []ServiceLineOfferingMapping{
		{ServiceLine: ServiceLineMW, InternalService: "Cloud", SimplifiedOffering: "o1"},
	}
	lineItems := []OpportunityLineItem{
		{InternalService: "Cloud", SimplifiedOffering: "o1"},
	}
	m := Multiplier(lineItems, mappings, nil, ServiceLineMW)
	if m != 1.0 {
		t.Errorf("got %v, want 1.0", m)
	}
}

func TestMultiplierBelowThreshold(t *testing.T) {
	mappings := []ServiceLineOfferingMapping{
		{ServiceLine: ServiceLineMW, InternalService: "Cloud", SimplifiedOffering: "o1"},
		{ServiceLine: ServiceLineMW, InternalService: "Cloud", SimplifiedOffering: "o2"},
	}
	lineItems := []OpportunityLineItem{
		{InternalService: "Cloud", SimplifiedOffering: "o1"},
	}
	threshold := &ServiceLineOfferingThreshold{ServiceLine: ServiceLineMW, Stage: Stage04A, ThresholdCount: 4, IncrementMultiplier: 0.2}
	m := Multiplier(lineItems, mappings, threshold, ServiceLineMW)
	if m != 1.0 {
		t.Errorf("got %v, want 1.0", m)
	}
}

// TestMultiplierTriggersScaling is scenario 2 from the resource-forecasting
// test suite: six distinct mapped offerings against a threshold of 4 and an
// increment of 0.2 yields 1 + (6-4)*0.2 = 1.4.
func TestMultiplierTriggersScaling(t *testing.T) {
	var mappings []ServiceLineOfferingMapping
	var lineItems []OpportunityLineItem
	for i := 0; i < 6; i++ {
		offering := string(rune('1' + i))
		mappings = append(mappings, ServiceLineOfferingMapping{ServiceLine: ServiceLineMW, InternalService: "Cloud", SimplifiedOffering: offering})
		lineItems = append(lineItems, OpportunityLineItem{InternalService: "Cloud", SimplifiedOffering: offering})
	}
	threshold := &ServiceLineOfferingThreshold{ServiceLine: ServiceLineMW, Stage: Stage04A, ThresholdCount: 4, IncrementMultiplier: 0.2}

	m := Multiplier(lineItems, mappings, threshold, ServiceLineMW)
	want := 1.4
	if diff := m - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("got %v, want %v", m, want)
	}
}

func TestMultiplierIgnoresUnmappedServiceLine(t *testing.T) {
	mappings := []ServiceLineOfferingMapping{
		{ServiceLine: ServiceLineITOC, InternalService: "Cloud", SimplifiedOffering: "o1"},
	}
	lineItems := []OpportunityLineItem{
		{InternalService: "Cloud", SimplifiedOffering: "o1"},
	}
	m := Multiplier(lineItems, mappings, nil, ServiceLineMW)
	if m != 1.0 {
		t.Errorf("got %v, want 1.0", m)
	}
}

func TestMultiplierIgnoresBlankOffering(t *testing.T) {
	mappings := []ServiceLineOfferingMapping{
		{ServiceLine: ServiceLineMW, InternalService: "Cloud", SimplifiedOffering: ""},
	}
	lineItems := []OpportunityLineItem{
		{InternalService: "Cloud", SimplifiedOffering: "  "},
	}
	threshold := &ServiceLineOfferingThreshold{ServiceLine: ServiceLineMW, Stage: Stage04A, ThresholdCount: 0, IncrementMultiplier: 1}
	m := Multiplier(lineItems, mappings, threshold, ServiceLineMW)
	if m != 1.0 {
		t.Errorf("blank offerings must not count toward k, got %v", m)
	}
}
