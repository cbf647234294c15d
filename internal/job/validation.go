package job

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the format of start_date and end_date.
const DateLayout = "2006-01-02"

const (
	maxInvoiceLength     = 50
	maxDescriptionLength = 2000
	maxRoleLength        = 50
)

// Validate normalises and checks a new job.
func Validate(j *Job) error {
	j.Invoice = strings.TrimSpace(j.Invoice)
	if j.Status == "" {
		j.Status = StatusPending
	}
	if j.CustomerCarID <= 0 {
		return fmt.Errorf("%w: customer_car_id is required", ErrInvalidJob)
	}
	if j.Invoice == "" || len(j.Invoice) > maxInvoiceLength {
		return fmt.Errorf("%w: invoice must be 1-%d characters", ErrInvalidJob, maxInvoiceLength)
	}
	if len(j.ServiceDescription) > maxDescriptionLength {
		return fmt.Errorf("%w: service_description exceeds %d characters", ErrInvalidJob, maxDescriptionLength)
	}
	if !j.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidJob, j.Status)
	}
	return validateDates(j)
}

// ValidatePatch checks the fields present in p. Date ordering is checked
// against the stored job by Apply.
func ValidatePatch(p *Patch) error {
	if p.CustomerCarID != nil && *p.CustomerCarID <= 0 {
		return fmt.Errorf("%w: customer_car_id must be positive", ErrInvalidJob)
	}
	if p.Invoice != nil {
		*p.Invoice = strings.TrimSpace(*p.Invoice)
		if *p.Invoice == "" || len(*p.Invoice) > maxInvoiceLength {
			return fmt.Errorf("%w: invoice must be 1-%d characters", ErrInvalidJob, maxInvoiceLength)
		}
	}
	if p.ServiceDescription != nil && len(*p.ServiceDescription) > maxDescriptionLength {
		return fmt.Errorf("%w: service_description exceeds %d characters", ErrInvalidJob, maxDescriptionLength)
	}
	if p.Status != nil && !p.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidJob, *p.Status)
	}
	return nil
}

// Apply copies the fields of p onto j and re-checks the result.
// Completing a job without an end date stamps today's date, or the start
// date when the job is scheduled in the future.
func Apply(j *Job, p Patch, today time.Time) error {
	if p.CustomerCarID != nil {
		j.CustomerCarID = *p.CustomerCarID
	}
	if p.Invoice != nil {
		j.Invoice = *p.Invoice
	}
	if p.ServiceDescription != nil {
		j.ServiceDescription = *p.ServiceDescription
	}
	if p.StartDate != nil {
		j.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		j.EndDate = *p.EndDate
	}
	if p.Status != nil {
		j.Status = *p.Status
	}
	if j.Status == StatusCompleted && j.EndDate == "" {
		j.EndDate = completionDate(j.StartDate, today)
	}
	return validateDates(j)
}

// ValidateRole checks a worker's role on a job.
func ValidateRole(role string) (string, error) {
	role = strings.TrimSpace(role)
	if role == "" || len(role) > maxRoleLength {
		return "", fmt.Errorf("%w: job_role must be 1-%d characters", ErrInvalidJob, maxRoleLength)
	}
	return role, nil
}

// completionDate is the end date stamped on completion. DateLayout strings
// order the same way as the dates they encode.
func completionDate(start string, today time.Time) string {
	end := today.Format(DateLayout)
	if end < start {
		return start
	}
	return end
}

func validateDates(j *Job) error {
	start, err := time.Parse(DateLayout, j.StartDate)
	if err != nil {
		return fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidJob)
	}
	if j.EndDate == "" {
		return nil
	}
	end, err := time.Parse(DateLayout, j.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidJob)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidJob)
	}
	return nil
}
