package report

import (
	"math"
	"strings"
)

// Default rates used when the intake does not supply its own.
const (
	DefaultAverageTariff = 0.025
	DefaultChinaTariff   = 0.25
	DefaultRVCThreshold  = 75.0
	partialRatio         = 0.833
)

type Assessment struct {
	Mexico               float64 `json:"mexico"`
	US                   float64 `json:"us"`
	Canada               float64 `json:"canada"`
	China                float64 `json:"china"`
	NorthAmericanContent float64 `json:"north_american_content"`
	Threshold            float64 `json:"threshold"`
	Status               string  `json:"status"` // QUALIFIED | PARTIAL | NOT_QUALIFIED
	AnnualSavings        float64 `json:"annual_savings"`
	TariffExposure       float64 `json:"tariff_exposure"`
}

var countryAliases = map[string]string{
	"CN": "CN", "CHN": "CN", "CHINA": "CN",
	"MX": "MX", "MEX": "MX", "MEXICO": "MX",
	"US": "US", "USA": "US", "U.S.": "US", "UNITED STATES": "US",
	"CA": "CA", "CAN": "CA", "CANADA": "CA",
}

// AssessUSMCA computes regional value content and the savings or exposure
// for the given component split. Zero rates fall back to the defaults.
func AssessUSMCA(tradeVolume float64, comps []Component, avgTariff, chinaTariff, threshold float64) Assessment {
	if avgTariff <= 0 {
		avgTariff = DefaultAverageTariff
	}
	if chinaTariff <= 0 {
		chinaTariff = DefaultChinaTariff
	}
	if threshold <= 0 {
		threshold = DefaultRVCThreshold
	}

	a := Assessment{Threshold: threshold}
	share := map[string]float64{}
	for _, c := range comps {
		code := countryAliases[strings.ToUpper(strings.TrimSpace(c.Country))]
		if _, seen := share[code]; code != "" && !seen {
			share[code] = c.Percentage
		}
	}
	a.Mexico, a.US, a.Canada, a.China = share["MX"], share["US"], share["CA"], share["CN"]
	a.NorthAmericanContent = a.Mexico + a.US + a.Canada

	exposure := math.Round(tradeVolume * (a.China / 100) * chinaTariff)
	switch {
	case a.NorthAmericanContent >= threshold:
		a.Status = "QUALIFIED"
		a.AnnualSavings = math.Round(tradeVolume * (a.NorthAmericanContent / 100) * avgTariff)
	case a.NorthAmericanContent >= threshold*partialRatio:
		a.Status = "PARTIAL"
		current := math.Round(tradeVolume * (a.NorthAmericanContent / 100) * avgTariff)
		potential := math.Round(tradeVolume * (threshold / 100) * avgTariff)
		a.AnnualSavings = potential - current
	default:
		a.Status = "NOT_QUALIFIED"
		a.AnnualSavings = math.Round(tradeVolume * (threshold / 100) * avgTariff)
	}
	a.TariffExposure = exposure
	return a
}
