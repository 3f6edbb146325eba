package portal

import (
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/form"
	"github.com/trezcool/engsoc/core/upload"
	"github.com/trezcool/engsoc/core/wizard"
)

// Login

const (
	fldMemberID = "member_id"
	fldPassword = "password"
)

var loginFlow = wizard.Flow{
	Name: "login",
	Schema: form.Schema{
		{Name: fldMemberID, Rules: "required", Messages: map[string]string{"required": "Member ID is required"}},
		{Name: fldPassword, Rules: "required", Messages: map[string]string{"required": "Password is required"}},
	},
	Steps: []wizard.Step{
		{Name: "credentials", Fields: []string{fldMemberID, fldPassword}},
		{Name: "dashboard"},
	},
}

// Event registration

const (
	fldFullName      = "full_name"
	fldEmail         = "email"
	fldPhone         = "phone"
	fldInstitution   = "institution"
	fldSaeID         = "sae_id"
	fldTeamName      = "team_name"
	fldTeamSize      = "team_size"
	fldAgreeToTerms  = "agree_to_terms"
	fldPaymentMethod = "payment_method"

	defaultPaymentMethod = event.PaymentCredit
)

var registrationFlow = wizard.Flow{
	Name: "registration",
	Schema: form.Schema{
		{Name: fldFullName, Rules: "required", Messages: map[string]string{"required": "Name is required"}},
		{Name: fldEmail, Rules: "required,basic_email", Messages: map[string]string{
			"required":    "Email is required",
			"basic_email": "Email is invalid",
		}},
		{Name: fldPhone, Rules: "required", Messages: map[string]string{"required": "Phone number is required"}},
		{Name: fldInstitution, Rules: "required", Messages: map[string]string{"required": "Institution name is required"}},
		{Name: fldSaeID, Rules: "required", Messages: map[string]string{"required": "SAE Membership ID is required"}},
		{Name: fldTeamName},
		{Name: fldTeamSize, Kind: form.Number, Rules: "omitempty,gte=1,lte=50", Messages: map[string]string{
			"gte": "Team size must be between 1 and 50",
			"lte": "Team size must be between 1 and 50",
		}},
		{Name: fldAgreeToTerms, Kind: form.Bool, Rules: "accepted", Messages: map[string]string{
			"accepted": "You must agree to the terms and conditions",
		}},
		{Name: fldPaymentMethod, Rules: "required,oneof=credit upi netbanking", Messages: map[string]string{
			"required": "Please select a payment method",
			"oneof":    "Please select a payment method",
		}},
	},
	Steps: []wizard.Step{
		{Name: "details"},
		{Name: "form", Fields: []string{
			fldFullName, fldEmail, fldPhone, fldInstitution, fldSaeID, fldTeamName, fldTeamSize, fldAgreeToTerms,
		}},
		{Name: "payment", Fields: []string{fldPaymentMethod}},
		{Name: "confirmation"},
	},
}

// Competition submission

const (
	fldTitle       = "title"
	fldDescription = "description"
	fldFiles       = "files"
)

func submissionFlow(tracker *upload.Tracker) wizard.Flow {
	return wizard.Flow{
		Name: "submission",
		Schema: form.Schema{
			{Name: fldTitle, Rules: "required", Messages: map[string]string{"required": "Please enter a submission title"}},
			{Name: fldDescription, Rules: "required", Messages: map[string]string{
				"required": "Please enter a submission description",
			}},
		},
		Steps: []wizard.Step{
			{Name: "compose", Fields: []string{fldTitle, fldDescription}, Check: filesCheck(tracker)},
			{Name: "submitted"},
		},
	}
}

func filesCheck(tracker *upload.Tracker) func(*form.State) form.Errors {
	return func(*form.State) form.Errors {
		errs := make(form.Errors)
		switch {
		case len(tracker.Tasks()) == 0:
			errs[fldFiles] = "Please upload at least one file"
		case tracker.Uploading():
			errs[fldFiles] = "Please wait for all files to finish uploading"
		case len(tracker.Completed()) == 0:
			errs[fldFiles] = "Please upload at least one file"
		}
		return errs
	}
}
