package submission

// Violation describes one field-level validation failure. The full set is
// returned to the caller, so every rule is evaluated independently rather than
// failing fast.
type Violation struct {
	Field        string `json:"field"`
	Kind         string `json:"kind"`
	Reason       string `json:"reason"`
	InvalidValue any    `json:"invalidValue"`
}

const violationKindEntity = "entity"

// Validate applies the variant's validation rules and collects every
// violation. An empty result means the submission may enter the pipeline.
func Validate(in Incoming) []Violation {
	var violations []Violation

	if !isDigitsOnly(string(in.applicant)) {
		violations = append(violations, Violation{
			Field:        "applicant.actorId",
			Kind:         violationKindEntity,
			Reason:       "not a valid actor id",
			InvalidValue: string(in.applicant),
		})
	}

	for _, role := range in.variant.Roles {
		if role.Mandatory && len(in.attachments[role.Key]) == 0 {
			violations = append(violations, Violation{
				Field:        string(role.Key),
				Kind:         violationKindEntity,
				Reason:       "at least one attachment is required",
				InvalidValue: []string{},
			})
		}
	}

	return violations
}

func isDigitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
