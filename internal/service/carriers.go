package service

// CarrierService is one bookable service level of a carrier
type CarrierService struct {
	Code        string
	Name        string
	BaseRate    int64 // cents
	DaysMin     int
	DaysMax     int
	Description string
}

// Carrier is a simulated shipping carrier with its tracking number prefix
type Carrier struct {
	ID             string
	Name           string
	TrackingPrefix string
	Services       []CarrierService
}

// Carriers is the fixed carrier catalog, keyed by carrier ID
var Carriers = map[string]Carrier{
	"ups": {
		ID:             "ups",
		Name:           "UPS",
		TrackingPrefix: "1Z",
		Services: []CarrierService{
			{Code: "ups-ground", Name: "UPS Ground", BaseRate: 890, DaysMin: 3, DaysMax: 5, Description: "Economical ground delivery"},
			{Code: "ups-3day", Name: "UPS 3 Day Select", BaseRate: 1599, DaysMin: 3, DaysMax: 3, Description: "Delivery by end of third business day"},
			{Code: "ups-2day", Name: "UPS 2nd Day Air", BaseRate: 2299, DaysMin: 2, DaysMax: 2, Description: "Delivery by end of second business day"},
			{Code: "ups-next-day", Name: "UPS Next Day Air", BaseRate: 3599, DaysMin: 1, DaysMax: 1, Description: "Next business day delivery"},
		},
	},
	"fedex": {
		ID:             "fedex",
		Name:           "FedEx",
		TrackingPrefix: "1234",
		Services: []CarrierService{
			{Code: "fedex-ground", Name: "FedEx Ground", BaseRate: 949, DaysMin: 3, DaysMax: 5, Description: "Day-definite ground delivery"},
			{Code: "fedex-express", Name: "FedEx Express Saver", BaseRate: 1649, DaysMin: 3, DaysMax: 3, Description: "Delivery in 3 business days"},
			{Code: "fedex-2day", Name: "FedEx 2Day", BaseRate: 2349, DaysMin: 2, DaysMax: 2, Description: "Delivery in 2 business days"},
			{Code: "fedex-overnight", Name: "FedEx Standard Overnight", BaseRate: 3749, DaysMin: 1, DaysMax: 1, Description: "Next business day delivery"},
		},
	},
	"usps": {
		ID:             "usps",
		Name:           "USPS",
		TrackingPrefix: "9400",
		Services: []CarrierService{
			{Code: "usps-ground", Name: "USPS Ground Advantage", BaseRate: 699, DaysMin: 3, DaysMax: 7, Description: "Affordable ground shipping"},
			{Code: "usps-priority", Name: "USPS Priority Mail", BaseRate: 1299, DaysMin: 1, DaysMax: 3, Description: "Fast domestic shipping"},
			{Code: "usps-express", Name: "USPS Priority Mail Express", BaseRate: 2899, DaysMin: 1, DaysMax: 2, Description: "Overnight to most locations"},
		},
	},
}

// ShippingFailureRate is the probability a label purchase fails at the carrier
const ShippingFailureRate = 0.05

// CancelRefundRate is the fraction of the label cost refunded on cancellation
const CancelRefundRate = 0.90

// DimensionalDivisor converts cubic inches to pounds for billable weight
const DimensionalDivisor = 166.0

// trackingLocations is the pool of intermediate scan locations
var trackingLocations = []string{
	"Los Angeles, CA",
	"Phoenix, AZ",
	"Denver, CO",
	"Chicago, IL",
	"Atlanta, GA",
	"New York, NY",
}

func findService(carrierID, serviceCode string) (Carrier, CarrierService, bool) {
	carrier, ok := Carriers[carrierID]
	if !ok {
		return Carrier{}, CarrierService{}, false
	}
	for _, svc := range carrier.Services {
		if svc.Code == serviceCode {
			return carrier, svc, true
		}
	}
	return Carrier{}, CarrierService{}, false
}
