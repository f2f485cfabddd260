package onboarding

// Vector holds one completion flag per step, in flow order.
type Vector [StepCount]bool

// AllComplete reports whether every step is complete.
func (v Vector) AllComplete() bool {
	for _, ok := range v {
		if !ok {
			return false
		}
	}
	return true
}

// FirstIncomplete returns the cursor of the first incomplete step, or Finished.
func (v Vector) FirstIncomplete() Cursor {
	for i, ok := range v {
		if !ok {
			return Cursor(i)
		}
	}
	return Finished
}

// Cursor is the active step index, or Finished.
type Cursor int

// Finished is the terminal cursor, one past the last step.
const Finished Cursor = StepCount

func (c Cursor) IsFinished() bool { return c >= Finished }

// Completion evaluates every step predicate against the record.
func (f Flow) Completion(rec Record) Vector {
	var v Vector
	for i, s := range f.Steps {
		v[i] = s.Complete(rec)
	}
	return v
}

// Derive computes the completion vector and landing cursor for a record.
//
// An account under review whose steps are all complete except payment is
// shown as finished: payment is not required to move forward once the
// profile has been submitted.
func (f Flow) Derive(rec Record) (Vector, Cursor) {
	v := f.Completion(rec)
	if rec.Status == StatusApprovalPending && f.completeExcept(v, StepPayment) {
		for i := range v {
			v[i] = true
		}
		return v, Finished
	}
	return v, v.FirstIncomplete()
}

// ReadyForReview reports whether every step except payment is complete.
func (f Flow) ReadyForReview(rec Record) bool {
	return f.completeExcept(f.Completion(rec), StepPayment)
}

func (f Flow) completeExcept(v Vector, skip StepID) bool {
	for i, s := range f.Steps {
		if s.ID == skip {
			continue
		}
		if !v[i] {
			return false
		}
	}
	return true
}
