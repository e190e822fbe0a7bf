package dto

type CheckoutRequestDTO struct {
	Plan string `json:"plan" enum:"go,pro"`
}

type SessionURLResponseDTO struct {
	URL string `json:"url"`
}

// ProvisionRequestDTO is an admin re-materialisation of a user's limits.
type ProvisionRequestDTO struct {
	PlanKey string `json:"planKey" enum:"go,pro"`
}
