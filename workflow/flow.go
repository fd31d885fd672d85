package workflow

import (
	"encoding/json"
	"fmt"

	"civic-portal/models"
)

// Service types attached to orders as notes, used for reconciliation.
const (
	ServiceTypeCertificate      = "certificate"
	ServiceTypeGrievanceUpgrade = "grievance_upgrade"
)

// Flat certificate fee table in rupees.
var certificateFees = map[string]int{
	models.CertificateBirth:     50,
	models.CertificateDeath:     50,
	models.CertificateIncome:    30,
	models.CertificateResidence: 30,
	models.CertificateMarriage:  100,
}

// GrievanceUpgradeFee is the fixed priority-upgrade fee in rupees.
const GrievanceUpgradeFee = 100

// Flow parameterizes a checkout session: where the fee comes from and which
// notes ride along on the order for later reconciliation.
type Flow struct {
	ServiceType string
	RecordID    string
	BaseFee     int
	Description string
	Notes       map[string]string
}

// CertificateFlow builds the flow for a certificate application.
func CertificateFlow(certType, applicationID string, formData map[string]string) (Flow, error) {
	fee, ok := certificateFees[certType]
	if !ok {
		return Flow{}, fmt.Errorf("unknown certificate type: %s", certType)
	}

	notes := map[string]string{
		"certificate_type": certType,
	}
	if len(formData) > 0 {
		form, _ := json.Marshal(formData)
		notes["form_data"] = string(form)
	}

	return Flow{
		ServiceType: ServiceTypeCertificate,
		RecordID:    applicationID,
		BaseFee:     fee,
		Description: certType + " certificate application fee",
		Notes:       notes,
	}, nil
}

// GrievanceUpgradeFlow builds the flow for a grievance priority upgrade.
func GrievanceUpgradeFlow(grievanceID string) Flow {
	return Flow{
		ServiceType: ServiceTypeGrievanceUpgrade,
		RecordID:    grievanceID,
		BaseFee:     GrievanceUpgradeFee,
		Description: "grievance priority upgrade fee",
		Notes: map[string]string{
			"grievance_id":     grievanceID,
			"priority_upgrade": "true",
		},
	}
}

// CertificateFee exposes the fee table for the review step.
func CertificateFee(certType string) (int, bool) {
	fee, ok := certificateFees[certType]
	return fee, ok
}
