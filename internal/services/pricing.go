package services

import (
	"github.com/localnerve/bizflow/internal/models"
	"github.com/shopspring/decimal"
)

var (
	virtualOfficeFee   = decimal.NewFromInt(2000)
	externalCompanyFee = decimal.NewFromInt(1000)
)

// servicePrices is the flat base price per service type
var servicePrices = map[models.ServiceType]decimal.Decimal{
	models.ServiceCommercial:   decimal.NewFromInt(5000),
	models.ServiceIndustrial:   decimal.NewFromInt(6000),
	models.ServiceProfessional: decimal.NewFromInt(4500),
	models.ServiceFreezone:     decimal.NewFromInt(5500),
	models.ServiceInvestorVisa: decimal.NewFromInt(7000),
	models.ServiceFamilyVisa:   decimal.NewFromInt(3000),
	models.ServiceGoldenVisa:   decimal.NewFromInt(8000),
}

// QuotePrice returns base price plus the virtual office and per-external-company add-ons
func QuotePrice(serviceType models.ServiceType, details models.ServiceDetails) decimal.Decimal {
	total := servicePrices[serviceType]
	if details.NeedVirtualOffice {
		total = total.Add(virtualOfficeFee)
	}
	return total.Add(externalCompanyFee.Mul(decimal.NewFromInt(int64(len(details.ExternalCompanies)))))
}

// SplitInstallments divides total into n parts rounded to cents; the last part absorbs the remainder
func SplitInstallments(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	part := total.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	parts := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		parts[i] = part
	}
	parts[n-1] = total.Sub(part.Mul(decimal.NewFromInt(int64(n - 1))))
	return parts
}
