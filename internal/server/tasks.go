package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"focusflow/internal/ai"
	"focusflow/internal/domain"
	"focusflow/internal/engine"
	"focusflow/internal/repo"
)

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			UserID:           userID,
			Title:            input.Body.Title,
			Description:      input.Body.Description,
			Category:         domain.Category(input.Body.Category),
			EstimatedMinutes: input.Body.EstimatedMinutes,
			Urgency:          input.Body.Urgency,
			Importance:       input.Body.Importance,
			ScheduledDate:    input.Body.ScheduledDate,
			Steps:            stepsFromRequest(input.Body.Steps),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks, newest first",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Status   string `query:"status" enum:"todo,completed"`
		Category string `query:"category" enum:"work,personal,health,learning,household,other"`
		Date     string `query:"date"`
	}) (*struct {
		Body TaskItems `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListTasks(ctx, userID, repo.TaskFilter{
			Status:        domain.TaskStatus(input.Status),
			Category:      domain.Category(input.Category),
			ScheduledDate: input.Date,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskItems `json:"body"`
		}{Body: TaskItems{Items: nonNilTasks(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.GetTask(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task fields",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.TaskUpdateOptions{
			UserID:           userID,
			ID:               input.ID,
			Title:            input.Body.Title,
			Description:      input.Body.Description,
			EstimatedMinutes: input.Body.EstimatedMinutes,
			ClearEstimate:    isNullRaw(rawBodyMap(ctx)["estimatedMinutes"]),
			Urgency:          input.Body.Urgency,
			Importance:       input.Body.Importance,
			ScheduledDate:    input.Body.ScheduledDate,
		}
		if input.Body.Category != nil {
			c := domain.Category(*input.Body.Category)
			opts.Category = &c
		}
		t, err := e.UpdateTask(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTask(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/toggle",
		Summary:     "Toggle task completion",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body engine.ToggleResult `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.ToggleComplete(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ToggleResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-step",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/steps/{stepId}/toggle",
		Summary:     "Toggle one step",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID     string `path:"id"`
		StepID string `path:"stepId"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.ToggleStep(ctx, userID, input.ID, input.StepID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reschedule-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/reschedule",
		Summary:     "Move task to another day",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body RescheduleRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.Reschedule(ctx, userID, input.ID, input.Body.Date)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "breakdown-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/breakdown",
		Summary:     "Replace steps with an AI breakdown",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body engine.BreakdownResult `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.BreakdownTask(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.BreakdownResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerAI(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "categorize",
		Method:      http.MethodPost,
		Path:        "/ai/categorize",
		Summary:     "Suggest category, urgency and importance for a title",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body CategorizeRequest `json:"body"`
	}) (*struct {
		Body ai.Suggestion `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		s, err := e.Categorize(ctx, input.Body.Title)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ai.Suggestion `json:"body"`
		}{Body: s}, nil
	})
}
