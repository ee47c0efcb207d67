package service

import (
	"time"

	"garment-dashboard/internal/model"
)

// TrackingStep identifies one stage of a progress bar
type TrackingStep string

const (
	StepOrdered    TrackingStep = "ordered"
	StepConfirmed  TrackingStep = "confirmed"
	StepProcessing TrackingStep = "processing"
	StepCutting    TrackingStep = "cutting"
	StepSewing     TrackingStep = "sewing"
	StepFinishing  TrackingStep = "finishing"
	StepPacked     TrackingStep = "packed"
	StepShipped    TrackingStep = "shipped"
	StepDelivered  TrackingStep = "delivered"

	StepPending  TrackingStep = "pending"
	StepApproved TrackingStep = "approved"
)

// TrackingView selects the step list a projection is drawn against
type TrackingView string

const (
	// TrackingViewDeep is the production-level list shown on the tracking page and
	// the manager boards.
	TrackingViewDeep TrackingView = "deep"
	// TrackingViewBuyer is the condensed list shown on the buyer's order list.
	TrackingViewBuyer TrackingView = "buyer"
)

var (
	deepSteps  = []TrackingStep{StepOrdered, StepConfirmed, StepProcessing, StepCutting, StepSewing, StepFinishing, StepPacked, StepShipped, StepDelivered}
	buyerSteps = []TrackingStep{StepPending, StepApproved, StepShipped, StepDelivered}
)

var stepTitles = map[TrackingStep]string{
	StepOrdered:    "Order Placed",
	StepConfirmed:  "Order Confirmed",
	StepProcessing: "Processing",
	StepCutting:    "Cutting",
	StepSewing:     "Sewing",
	StepFinishing:  "Finishing",
	StepPacked:     "Packed",
	StepShipped:    "Shipped",
	StepDelivered:  "Delivered",
	StepPending:    "Pending",
	StepApproved:   "Approved",
}

// StepsFor returns the ordered step list of a view.
func StepsFor(view TrackingView) []TrackingStep {
	if view == TrackingViewBuyer {
		return append([]TrackingStep(nil), buyerSteps...)
	}
	return append([]TrackingStep(nil), deepSteps...)
}

// ProjectedStep is one entry of a projection
type ProjectedStep struct {
	Key       TrackingStep `json:"key"`
	Title     string       `json:"title"`
	Completed bool         `json:"completed"`
	Current   bool         `json:"current"`
	Location  string       `json:"location,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	At        *time.Time   `json:"at,omitempty"`
}

// Projection is the progress view of an order
type Projection struct {
	OrderID          string             `json:"order_id"`
	Status           model.OrderStatus  `json:"status"`
	View             TrackingView       `json:"view"`
	CurrentStepIndex int                `json:"current_step_index"`
	PercentComplete  float64            `json:"percent_complete"`
	Stopped          bool               `json:"stopped"`
	Steps            []ProjectedStep    `json:"steps"`
	History          []model.OrderEvent `json:"history"`
}

// Project maps an order onto the step list of view. Cancelled and rejected orders
// are reported as stopped with no progress.
func Project(order *model.Order, view TrackingView) Projection {
	steps := StepsFor(view)
	p := Projection{
		OrderID:          order.ID,
		Status:           order.Status,
		View:             view,
		CurrentStepIndex: -1,
		Steps:            make([]ProjectedStep, len(steps)),
		History:          append([]model.OrderEvent(nil), order.History...),
	}
	if p.View != TrackingViewBuyer {
		p.View = TrackingViewDeep
	}

	for i, key := range steps {
		p.Steps[i] = ProjectedStep{Key: key, Title: stepTitles[key]}
	}

	if IsStopped(order.Status) {
		p.Stopped = true
		return p
	}

	current := stepOf(order.Status, p.View)
	for i, key := range steps {
		if key == current {
			p.CurrentStepIndex = i
			break
		}
	}
	if p.CurrentStepIndex < 0 {
		return p
	}

	// Latest event per step, oldest first so later events win.
	latest := make(map[TrackingStep]model.OrderEvent, len(steps))
	for _, ev := range order.History {
		if s := stepOf(ev.Status, p.View); s != "" {
			latest[s] = ev
		}
	}

	for i := range p.Steps {
		p.Steps[i].Completed = i <= p.CurrentStepIndex
		p.Steps[i].Current = i == p.CurrentStepIndex
		if ev, ok := latest[p.Steps[i].Key]; ok && p.Steps[i].Completed {
			at := ev.OccurredAt
			p.Steps[i].Location = ev.Location
			p.Steps[i].Notes = ev.Notes
			p.Steps[i].At = &at
		}
	}
	p.PercentComplete = float64(p.CurrentStepIndex+1) / float64(len(steps))
	return p
}

func stepOf(status model.OrderStatus, view TrackingView) TrackingStep {
	entry := lifecycle[status]
	if view == TrackingViewBuyer {
		return entry.buyerStep
	}
	return entry.deepStep
}
