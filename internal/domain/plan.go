package domain

// Plan names.
const (
	PlanFree         = "free"
	PlanPayPerUse    = "payperuse"
	PlanStarter      = "starter"
	PlanProfessional = "professional"
)

// RetentionUnlimited marks unlimited storage retention.
const RetentionUnlimited = -1

// Plan is the derived bundle of entitlements active for a user. It is
// computed from subscription and credit state, never persisted.
type Plan struct {
	Name                  string `json:"name"`
	IsActive              bool   `json:"isActive"`
	MonthlyDocumentLimit  int    `json:"monthlyDocumentLimit"`
	HasUnlimitedDocuments bool   `json:"hasUnlimitedDocuments"`
	HasPrioritySupport    bool   `json:"hasPrioritySupport"`
	HasTemplates          bool   `json:"hasTemplates"`
	HasAPI                bool   `json:"hasAPI"`
	StorageRetentionDays  int    `json:"storageRetentionDays"`
}

// StarterPlan returns the starter capability set.
func StarterPlan() Plan {
	return Plan{
		Name:                 PlanStarter,
		IsActive:             true,
		MonthlyDocumentLimit: 50,
		HasTemplates:         true,
		StorageRetentionDays: 365,
	}
}

// ProfessionalPlan returns the professional capability set.
func ProfessionalPlan() Plan {
	return Plan{
		Name:                 PlanProfessional,
		IsActive:             true,
		MonthlyDocumentLimit: 500,
		HasPrioritySupport:   true,
		HasTemplates:         true,
		HasAPI:               true,
		StorageRetentionDays: RetentionUnlimited,
	}
}

// PayPerUsePlan returns the pay-per-use capability set for a given credit
// balance. The monthly limit IS the balance: creating a document consumes
// a credit.
func PayPerUsePlan(credits int) Plan {
	return Plan{
		Name:                 PlanPayPerUse,
		IsActive:             true,
		MonthlyDocumentLimit: credits,
		StorageRetentionDays: 30,
	}
}

// FreePlan returns the inactive default plan.
func FreePlan() Plan {
	return Plan{Name: PlanFree}
}

// SubscriptionPlan maps a stored plan name to its capability set. Unknown
// or missing names default to professional.
func SubscriptionPlan(name string) Plan {
	if name == PlanStarter {
		return StarterPlan()
	}
	return ProfessionalPlan()
}

// AvailablePlans returns the purchasable plans shown on the pricing page.
func AvailablePlans() []Plan {
	return []Plan{StarterPlan(), ProfessionalPlan()}
}
