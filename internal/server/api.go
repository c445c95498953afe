package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/niktheblak/helvetic/pkg/measurement"
)

const storeTimeout = 5 * time.Second

type userRequest struct {
	Name      *string `json:"name"`
	Birthyear *int    `json:"birthyear"`
	Gender    *string `json:"gender"`
	Height    *int    `json:"height"`
}

type measurementRequest struct {
	UserID    *int64   `json:"user_id"`
	Weight    *float64 `json:"weight"`
	BodyFat   *float64 `json:"body_fat"`
	Timestamp *string  `json:"timestamp"`
}

func listUsersHandler(store measurement.UserDirectory, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()
		users, err := store.ListUsers(ctx)
		if err != nil {
			internalError(w, r, logger, "Error while listing users", err)
			return
		}
		if users == nil {
			users = []measurement.User{}
		}
		writeJSON(w, r, logger, http.StatusOK, users)
	})
}

func createUserHandler(store measurement.UserDirectory, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == nil {
			writeError(w, r, logger, http.StatusBadRequest, "Missing required field: name")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()
		var created measurement.User
		err := store.UpdateUsers(ctx, func(users []measurement.User) ([]measurement.User, error) {
			created = measurement.User{
				ID:        measurement.NextUserID(users),
				Name:      *req.Name,
				Birthyear: req.Birthyear,
				Gender:    req.Gender,
				Height:    req.Height,
				Created:   time.Now().UTC(),
			}
			return append(users, created), nil
		})
		if err != nil {
			internalError(w, r, logger, "Error while creating user", err)
			return
		}
		logger.LogAttrs(r.Context(), slog.LevelInfo, "Created user", slog.Int64("id", created.ID), slog.String("name", created.Name))
		writeJSON(w, r, logger, http.StatusCreated, created)
	})
}

func updateUserHandler(store measurement.UserDirectory, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(httprouter.ParamsFromContext(r.Context()).ByName("id"))
		if err != nil {
			writeError(w, r, logger, http.StatusBadRequest, "Invalid user id")
			return
		}
		var req userRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, r, logger, http.StatusBadRequest, "Invalid request body")
				return
			}
		}
		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()
		var updated measurement.User
		err = store.UpdateUsers(ctx, func(users []measurement.User) ([]measurement.User, error) {
			i := measurement.IndexOfUser(users, id)
			if i < 0 {
				return nil, measurement.ErrNotFound
			}
			if req.Name != nil {
				users[i].Name = *req.Name
			}
			if req.Birthyear != nil {
				users[i].Birthyear = req.Birthyear
			}
			if req.Gender != nil {
				users[i].Gender = req.Gender
			}
			if req.Height != nil {
				users[i].Height = req.Height
			}
			updated = users[i]
			return users, nil
		})
		switch {
		case errors.Is(err, measurement.ErrNotFound):
			writeError(w, r, logger, http.StatusNotFound, "User not found")
		case err != nil:
			internalError(w, r, logger, "Error while updating user", err)
		default:
			writeJSON(w, r, logger, http.StatusOK, updated)
		}
	})
}

func deleteUserHandler(store measurement.UserDirectory, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(httprouter.ParamsFromContext(r.Context()).ByName("id"))
		if err != nil {
			writeError(w, r, logger, http.StatusBadRequest, "Invalid user id")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()
		err = store.UpdateUsers(ctx, func(users []measurement.User) ([]measurement.User, error) {
			kept := users[:0]
			for _, u := range users {
				if u.ID != id {
					kept = append(kept, u)
				}
			}
			return kept, nil
		})
		if err != nil {
			internalError(w, r, logger, "Error while deleting user", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func listMeasurementsHandler(store measurement.MeasurementStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var filter measurement.Filter
		if v := r.URL.Query().Get("user_id"); v != "" {
			id, err := parseID(v)
			if err != nil {
				writeError(w, r, logger, http.StatusBadRequest, "Invalid user_id")
				return
			}
			filter.UserID = &id
		}
		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()
		measurements, err := store.ListMeasurements(ctx, filter)
		if err != nil {
			internalError(w, r, logger, "Error while listing measurements", err)
			return
		}
		if measurements == nil {
			measurements = []measurement.Measurement{}
		}
		writeJSON(w, r, logger, http.StatusOK, measurements)
	})
}

func createMeasurementHandler(store measurement.MeasurementStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req measurementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == nil || req.Weight == nil {
			writeError(w, r, logger, http.StatusBadRequest, "Missing required fields: user_id, weight")
			return
		}
		m := measurement.Measurement{
			UserID:    *req.UserID,
			Weight:    *req.Weight,
			BodyFat:   req.BodyFat,
			Timestamp: time.Now().UTC(),
		}
		if req.Timestamp != nil && *req.Timestamp != "" {
			ts, err := measurement.ParseTimestamp(*req.Timestamp)
			if err != nil {
				writeError(w, r, logger, http.StatusBadRequest, "Invalid timestamp")
				return
			}
			m.Timestamp = ts
		}
		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()
		m, err := store.AppendMeasurement(ctx, m)
		if err != nil {
			internalError(w, r, logger, "Error while storing measurement", err)
			return
		}
		writeJSON(w, r, logger, http.StatusCreated, m)
	})
}

func latestMeasurementHandler(store measurement.MeasurementStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query().Get("user_id")
		if v == "" {
			writeError(w, r, logger, http.StatusBadRequest, "Missing user_id")
			return
		}
		id, err := parseID(v)
		if err != nil {
			writeError(w, r, logger, http.StatusBadRequest, "Invalid user_id")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()
		measurements, err := store.ListMeasurements(ctx, measurement.Filter{UserID: &id})
		if err != nil {
			internalError(w, r, logger, "Error while listing measurements", err)
			return
		}
		latest, ok := measurement.Latest(measurements)
		if !ok {
			writeError(w, r, logger, http.StatusNotFound, "No measurements found for user")
			return
		}
		writeJSON(w, r, logger, http.StatusOK, latest)
	})
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func writeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.LogAttrs(r.Context(), slog.LevelError, "Error while writing output", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, msg string) {
	writeJSON(w, r, logger, status, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	logger.LogAttrs(r.Context(), slog.LevelError, msg, slog.Any("error", err))
	writeError(w, r, logger, http.StatusInternalServerError, msg)
}
