package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/lessonforge/lessonforge/internal/app"
	"github.com/lessonforge/lessonforge/internal/domain"
)

// Services bundles the application services the API exposes.
type Services struct {
	Ledger      *app.Ledger
	Broker      *app.QuoteBroker
	Coordinator *app.Coordinator
	Roster      *app.RosterService
	Objectives  *app.ObjectiveService
}

// --- API representations ---

// LessonRequestResponse is the API representation of a lesson request.
type LessonRequestResponse struct {
	ID              string `json:"id" doc:"Unique identifier"`
	StudentID       string `json:"student_id" doc:"Requesting student"`
	LessonType      string `json:"lesson_type" doc:"Kind of lesson requested"`
	StartTime       string `json:"start_time" doc:"Scheduled start (ISO 8601)"`
	DurationMinutes int    `json:"duration_minutes" doc:"Lesson length in minutes"`
	AddressID       string `json:"address_id" doc:"Lesson location"`
	CreatedAt       string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toLessonRequestResponse(r domain.LessonRequest) LessonRequestResponse {
	return LessonRequestResponse{
		ID:              r.ID,
		StudentID:       r.StudentID,
		LessonType:      r.LessonType,
		StartTime:       r.StartTime.Format(time.RFC3339),
		DurationMinutes: r.DurationMinutes,
		AddressID:       r.AddressID,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
}

// QuoteResponse is the API representation of a quote with its current
// lifecycle status.
type QuoteResponse struct {
	ID              string `json:"id" doc:"Unique identifier"`
	LessonRequestID string `json:"lesson_request_id" doc:"Request this quote answers"`
	TeacherID       string `json:"teacher_id" doc:"Quoting teacher"`
	HourlyRateCents int64  `json:"hourly_rate_cents" doc:"Teacher's hourly rate in cents"`
	CostCents       int64  `json:"cost_cents" doc:"Total lesson cost in cents"`
	Status          string `json:"status" doc:"Current lifecycle status"`
	CreatedAt       string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	ExpiresAt       string `json:"expires_at" doc:"Acceptance deadline (ISO 8601)"`
}

func (s *Services) toQuoteResponse(ctx context.Context, q domain.Quote) (QuoteResponse, error) {
	status, err := s.Ledger.CurrentStatus(ctx, domain.EntityQuote, q.ID)
	if err != nil {
		return QuoteResponse{}, err
	}
	return QuoteResponse{
		ID:              q.ID,
		LessonRequestID: q.LessonRequestID,
		TeacherID:       q.TeacherID,
		HourlyRateCents: q.HourlyRateCents,
		CostCents:       q.CostCents,
		Status:          string(status),
		CreatedAt:       q.CreatedAt.Format(time.RFC3339),
		ExpiresAt:       q.ExpiresAt.Format(time.RFC3339),
	}, nil
}

func (s *Services) toQuoteResponses(ctx context.Context, quotes []domain.Quote) ([]QuoteResponse, error) {
	resp := make([]QuoteResponse, len(quotes))
	for i, q := range quotes {
		qr, err := s.toQuoteResponse(ctx, q)
		if err != nil {
			return nil, err
		}
		resp[i] = qr
	}
	return resp, nil
}

// StatusRecordResponse is the API representation of one ledger record.
type StatusRecordResponse struct {
	ID         string `json:"id" doc:"Record identifier"`
	EntityType string `json:"entity_type" doc:"Kind of entity"`
	EntityID   string `json:"entity_id" doc:"Entity identifier"`
	Status     string `json:"status" doc:"Status after this record"`
	Event      string `json:"event,omitempty" doc:"Event that caused the record (empty on registration)"`
	Note       string `json:"note,omitempty" doc:"Free-form annotation"`
	CreatedAt  string `json:"created_at" doc:"Record timestamp (ISO 8601)"`
}

func toStatusRecordResponse(r domain.StatusRecord) StatusRecordResponse {
	return StatusRecordResponse{
		ID:         r.ID,
		EntityType: string(r.EntityType),
		EntityID:   r.EntityID,
		Status:     string(r.Status),
		Event:      string(r.Event),
		Note:       r.Note,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}
}

// --- Lesson requests ---

type CreateLessonRequestInput struct {
	Body struct {
		StudentID       string    `json:"student_id" minLength:"1" doc:"Requesting student"`
		LessonType      string    `json:"lesson_type" minLength:"1" doc:"Kind of lesson requested"`
		StartTime       time.Time `json:"start_time" doc:"Scheduled start"`
		DurationMinutes int       `json:"duration_minutes" minimum:"1" doc:"Lesson length in minutes"`
		AddressID       string    `json:"address_id" minLength:"1" doc:"Lesson location"`
	}
}

type CreateLessonRequestOutput struct {
	Body LessonRequestResponse
}

type GetLessonRequestInput struct {
	ID string `path:"id" doc:"Lesson request ID"`
}

type GetLessonRequestOutput struct {
	Body LessonRequestResponse
}

// --- Quotes ---

type GenerateQuotesInput struct {
	ID string `path:"id" doc:"Lesson request ID"`
}

type GenerateQuotesOutput struct {
	Body []QuoteResponse
}

type ListQuotesInput struct {
	ID string `path:"id" doc:"Lesson request ID"`
}

type ListQuotesOutput struct {
	Body []QuoteResponse
}

type GetQuoteInput struct {
	ID string `path:"id" doc:"Quote ID"`
}

type GetQuoteOutput struct {
	Body QuoteResponse
}

type AcceptQuoteInput struct {
	ID string `path:"id" doc:"Quote ID"`
}

// AcceptQuoteResponse reports the booked lesson and the sibling quotes that
// were expired as part of the acceptance.
type AcceptQuoteResponse struct {
	LessonID        string   `json:"lesson_id" doc:"Booked lesson"`
	QuoteID         string   `json:"quote_id" doc:"Accepted quote"`
	ExpiredQuoteIDs []string `json:"expired_quote_ids,omitempty" doc:"Sibling quotes expired by this acceptance"`
}

type AcceptQuoteOutput struct {
	Body AcceptQuoteResponse
}

// --- Roster ---

type CreateTeacherInput struct {
	Body struct {
		Name        string           `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		RatesByType map[string]int64 `json:"rates_by_type,omitempty" doc:"Hourly rate in cents per lesson type"`
	}
}

type TeacherResponse struct {
	ID        string              `json:"id" doc:"Unique identifier"`
	Name      string              `json:"name" doc:"Display name"`
	Rates     []HourlyRateResponse `json:"rates,omitempty" doc:"Registered hourly rates"`
	CreatedAt string              `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

type HourlyRateResponse struct {
	ID         string `json:"id" doc:"Unique identifier"`
	TeacherID  string `json:"teacher_id" doc:"Owning teacher"`
	LessonType string `json:"lesson_type" doc:"Lesson type this rate applies to"`
	RateCents  int64  `json:"rate_cents" doc:"Hourly rate in cents"`
}

func toHourlyRateResponse(r domain.HourlyRate) HourlyRateResponse {
	return HourlyRateResponse{
		ID:         r.ID,
		TeacherID:  r.TeacherID,
		LessonType: r.LessonType,
		RateCents:  r.RateCents,
	}
}

type CreateTeacherOutput struct {
	Body TeacherResponse
}

type RateEventInput struct {
	ID   string `path:"id" doc:"Hourly rate ID"`
	Body struct {
		Event string `json:"event" doc:"Lifecycle event to trigger" enum:"activate,deactivate"`
		Note  string `json:"note,omitempty" doc:"Free-form annotation"`
	}
}

type RateEventOutput struct {
	Body StatusRecordResponse
}

// --- Objectives ---

type CreateObjectiveInput struct {
	Body struct {
		StudentID string `json:"student_id" minLength:"1" doc:"Owning student"`
		Title     string `json:"title" minLength:"1" maxLength:"255" doc:"Goal description"`
	}
}

type ObjectiveResponse struct {
	ID        string `json:"id" doc:"Unique identifier"`
	StudentID string `json:"student_id" doc:"Owning student"`
	Title     string `json:"title" doc:"Goal description"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

type CreateObjectiveOutput struct {
	Body ObjectiveResponse
}

type ObjectiveEventInput struct {
	ID   string `path:"id" doc:"Objective ID"`
	Body struct {
		Event string `json:"event" doc:"Lifecycle event to trigger" enum:"start,achieve,abandon"`
		Note  string `json:"note,omitempty" doc:"Free-form annotation"`
	}
}

type ObjectiveEventOutput struct {
	Body StatusRecordResponse
}

// --- Generic lifecycle ---

type LifecycleStatusInput struct {
	EntityType string `path:"entityType" doc:"Entity kind" enum:"quote,lesson,objective,hourly_rate"`
	ID         string `path:"id" doc:"Entity ID"`
}

type LifecycleStatusResponse struct {
	EntityType string `json:"entity_type" doc:"Entity kind"`
	EntityID   string `json:"entity_id" doc:"Entity identifier"`
	Status     string `json:"status" doc:"Current lifecycle status"`
}

type LifecycleStatusOutput struct {
	Body LifecycleStatusResponse
}

type LifecycleHistoryInput struct {
	EntityType string `path:"entityType" doc:"Entity kind" enum:"quote,lesson,objective,hourly_rate"`
	ID         string `path:"id" doc:"Entity ID"`
}

type LifecycleHistoryOutput struct {
	Body []StatusRecordResponse
}

type LifecycleEventInput struct {
	EntityType string `path:"entityType" doc:"Entity kind" enum:"quote,lesson,objective,hourly_rate"`
	ID         string `path:"id" doc:"Entity ID"`
	Body       struct {
		Event string `json:"event" minLength:"1" doc:"Lifecycle event to trigger"`
		Note  string `json:"note,omitempty" doc:"Free-form annotation"`
	}
}

type LifecycleEventOutput struct {
	Body StatusRecordResponse
}

// Register adds all API routes to the Huma API.
func Register(api huma.API, svc *Services) {
	huma.Register(api, huma.Operation{
		OperationID: "create-lesson-request",
		Method:      http.MethodPost,
		Path:        "/api/v1/lesson-requests",
		Summary:     "Create a lesson request",
		Tags:        []string{"Lesson Requests"},
	}, func(ctx context.Context, input *CreateLessonRequestInput) (*CreateLessonRequestOutput, error) {
		req, err := svc.Broker.CreateLessonRequest(ctx,
			input.Body.StudentID, input.Body.LessonType,
			input.Body.StartTime, input.Body.DurationMinutes, input.Body.AddressID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateLessonRequestOutput{Body: toLessonRequestResponse(req)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-lesson-request",
		Method:      http.MethodGet,
		Path:        "/api/v1/lesson-requests/{id}",
		Summary:     "Get a lesson request by ID",
		Tags:        []string{"Lesson Requests"},
	}, func(ctx context.Context, input *GetLessonRequestInput) (*GetLessonRequestOutput, error) {
		req, err := svc.Broker.GetLessonRequest(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetLessonRequestOutput{Body: toLessonRequestResponse(req)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "generate-quotes",
		Method:      http.MethodPost,
		Path:        "/api/v1/lesson-requests/{id}/quotes",
		Summary:     "Generate quotes for a lesson request",
		Tags:        []string{"Quotes"},
	}, func(ctx context.Context, input *GenerateQuotesInput) (*GenerateQuotesOutput, error) {
		quotes, err := svc.Broker.GenerateQuotes(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp, err := svc.toQuoteResponses(ctx, quotes)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GenerateQuotesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-quotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/lesson-requests/{id}/quotes",
		Summary:     "List quotes for a lesson request",
		Tags:        []string{"Quotes"},
	}, func(ctx context.Context, input *ListQuotesInput) (*ListQuotesOutput, error) {
		quotes, err := svc.Broker.QuotesByRequest(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp, err := svc.toQuoteResponses(ctx, quotes)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ListQuotesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-quote",
		Method:      http.MethodGet,
		Path:        "/api/v1/quotes/{id}",
		Summary:     "Get a quote by ID",
		Tags:        []string{"Quotes"},
	}, func(ctx context.Context, input *GetQuoteInput) (*GetQuoteOutput, error) {
		quote, err := svc.Coordinator.GetQuote(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp, err := svc.toQuoteResponse(ctx, quote)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetQuoteOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-quote",
		Method:      http.MethodPost,
		Path:        "/api/v1/quotes/{id}/accept",
		Summary:     "Accept a quote and book the lesson",
		Tags:        []string{"Quotes"},
	}, func(ctx context.Context, input *AcceptQuoteInput) (*AcceptQuoteOutput, error) {
		result, err := svc.Coordinator.AcceptQuote(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AcceptQuoteOutput{Body: AcceptQuoteResponse{
			LessonID:        result.Lesson.ID,
			QuoteID:         result.Lesson.QuoteID,
			ExpiredQuoteIDs: result.ExpiredQuoteIDs,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-teacher",
		Method:      http.MethodPost,
		Path:        "/api/v1/teachers",
		Summary:     "Register a teacher with hourly rates",
		Tags:        []string{"Roster"},
	}, func(ctx context.Context, input *CreateTeacherInput) (*CreateTeacherOutput, error) {
		teacher, rates, err := svc.Roster.AddTeacher(ctx, input.Body.Name, input.Body.RatesByType)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := TeacherResponse{
			ID:        teacher.ID,
			Name:      teacher.Name,
			CreatedAt: teacher.CreatedAt.Format(time.RFC3339),
		}
		for _, r := range rates {
			resp.Rates = append(resp.Rates, toHourlyRateResponse(r))
		}
		return &CreateTeacherOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-rate",
		Method:      http.MethodPost,
		Path:        "/api/v1/rates/{id}/events",
		Summary:     "Trigger an hourly rate lifecycle event",
		Tags:        []string{"Roster"},
	}, func(ctx context.Context, input *RateEventInput) (*RateEventOutput, error) {
		rec, err := svc.Ledger.RecordTransition(ctx, domain.EntityHourlyRate, input.ID,
			domain.Event(input.Body.Event), input.Body.Note)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RateEventOutput{Body: toStatusRecordResponse(rec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-objective",
		Method:      http.MethodPost,
		Path:        "/api/v1/objectives",
		Summary:     "Create a learning objective",
		Tags:        []string{"Objectives"},
	}, func(ctx context.Context, input *CreateObjectiveInput) (*CreateObjectiveOutput, error) {
		obj, err := svc.Objectives.Create(ctx, input.Body.StudentID, input.Body.Title)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateObjectiveOutput{Body: ObjectiveResponse{
			ID:        obj.ID,
			StudentID: obj.StudentID,
			Title:     obj.Title,
			CreatedAt: obj.CreatedAt.Format(time.RFC3339),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-objective",
		Method:      http.MethodPost,
		Path:        "/api/v1/objectives/{id}/events",
		Summary:     "Trigger an objective lifecycle event",
		Tags:        []string{"Objectives"},
	}, func(ctx context.Context, input *ObjectiveEventInput) (*ObjectiveEventOutput, error) {
		rec, err := svc.Ledger.RecordTransition(ctx, domain.EntityObjective, input.ID,
			domain.Event(input.Body.Event), input.Body.Note)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ObjectiveEventOutput{Body: toStatusRecordResponse(rec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-lifecycle-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/lifecycle/{entityType}/{id}",
		Summary:     "Get the current lifecycle status of an entity",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *LifecycleStatusInput) (*LifecycleStatusOutput, error) {
		status, err := svc.Ledger.CurrentStatus(ctx, domain.EntityType(input.EntityType), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &LifecycleStatusOutput{Body: LifecycleStatusResponse{
			EntityType: input.EntityType,
			EntityID:   input.ID,
			Status:     string(status),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-lifecycle-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/lifecycle/{entityType}/{id}/history",
		Summary:     "Get the full lifecycle history of an entity",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *LifecycleHistoryInput) (*LifecycleHistoryOutput, error) {
		history, err := svc.Ledger.History(ctx, domain.EntityType(input.EntityType), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]StatusRecordResponse, len(history))
		for i, rec := range history {
			resp[i] = toStatusRecordResponse(rec)
		}
		return &LifecycleHistoryOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-lifecycle",
		Method:      http.MethodPost,
		Path:        "/api/v1/lifecycle/{entityType}/{id}/events",
		Summary:     "Trigger a lifecycle event on an entity",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *LifecycleEventInput) (*LifecycleEventOutput, error) {
		rec, err := svc.Ledger.RecordTransition(ctx, domain.EntityType(input.EntityType), input.ID,
			domain.Event(input.Body.Event), input.Body.Note)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &LifecycleEventOutput{Body: toStatusRecordResponse(rec)}, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrEntityNotFound) {
		return huma.Error404NotFound("entity not found")
	}

	var expiredErr *domain.QuoteExpiredError
	if errors.As(err, &expiredErr) {
		return huma.Error410Gone(expiredErr.Error())
	}

	var resolvedErr *domain.AlreadyResolvedError
	if errors.As(err, &resolvedErr) {
		return huma.Error409Conflict(resolvedErr.Error())
	}

	var conflictErr *domain.ConcurrentConflictError
	if errors.As(err, &conflictErr) {
		return huma.Error409Conflict(conflictErr.Error())
	}

	var dupErr *domain.DuplicateQuoteError
	if errors.As(err, &dupErr) {
		return huma.Error409Conflict(dupErr.Error())
	}

	if errors.Is(err, domain.ErrAlreadyRegistered) {
		return huma.Error409Conflict(err.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	if errors.Is(err, domain.ErrNoAvailableTeachers) {
		return huma.Error422UnprocessableEntity(err.Error())
	}

	var persistErr *domain.PersistenceError
	if errors.As(err, &persistErr) {
		return huma.Error500InternalServerError("internal server error")
	}

	return huma.Error500InternalServerError("internal server error")
}
