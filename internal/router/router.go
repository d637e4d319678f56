// Package router maps the HTTP API onto the user repository.
package router

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validator "github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/patric-chuzhbe/kidneyhealth/internal/gzippedhttp"
	"github.com/patric-chuzhbe/kidneyhealth/internal/logger"
	"github.com/patric-chuzhbe/kidneyhealth/internal/models"
	"github.com/patric-chuzhbe/kidneyhealth/internal/repository"
)

const WelcomeMessage = "Welcome to the Kidney Health Server! Use /user/:id to get user data."

const (
	msgUserNotFound        = "User not found"
	msgUserAdded           = "User added successfully!"
	msgUserDeleted         = "User deleted successfully!"
	msgKidneyAdded         = "Kidney added successfully!"
	msgKidneysHealed       = "All kidneys updated to healthy!"
	msgUnhealthyRemoved    = "Unhealthy kidneys removed!"
	msgNoUnhealthyKidneys  = "User has no unhealthy kidneys"
	msgInvalidRequestBody  = "Invalid request body"
	msgInternalServerError = "Internal server error"
	msgStorageNotAvailable = "Storage is not available"
)

// StatusNoUnhealthyKidneys answers DELETE /user/{id}/kidneys when there is nothing to remove.
const StatusNoUnhealthyKidneys = http.StatusLengthRequired

type userRepository interface {
	GetSummary(ctx context.Context, userID int) (models.UserSummary, error)
	Create(ctx context.Context, name string) (*models.User, error)
	Delete(ctx context.Context, userID int) error
	AddKidney(ctx context.Context, userID int, isHealthy bool) error
	MarkAllKidneysHealthy(ctx context.Context, userID int) error
	RemoveUnhealthyKidneys(ctx context.Context, userID int) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	repo     userRepository
	db       pinger
	validate *validator.Validate
}

type InitOption func(*initOptions)

type initOptions struct {
	disableGzip bool
}

// WithDisableGzip turns off gzip decoding of requests and encoding of responses.
func WithDisableGzip(disableGzip bool) InitOption {
	return func(options *initOptions) {
		options.disableGzip = disableGzip
	}
}

func writeJSON(res http.ResponseWriter, status int, body any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	if err := json.NewEncoder(res).Encode(body); err != nil {
		logger.Log.Errorw("Error writing response", "error", err)
	}
}

func (router *Router) writeError(res http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(res, http.StatusNotFound, models.MessageResponse{Msg: msgUserNotFound})

	case errors.Is(err, repository.ErrNoUnhealthyKidneys):
		writeJSON(res, StatusNoUnhealthyKidneys, models.MessageResponse{Msg: msgNoUnhealthyKidneys})

	default:
		logger.Log.Errorw(
			"Error handling request",
			"uri", req.RequestURI,
			"method", req.Method,
			"request_id", logger.RequestID(req.Context()),
			"error", err,
		)
		writeJSON(res, http.StatusInternalServerError, models.ErrorResponse{
			Msg:   msgInternalServerError,
			Error: err.Error(),
		})
	}
}

// userID reads the {id} path parameter. Anything that is not an integer
// cannot name a user, so it is reported as ErrNotFound.
func userID(req *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(req, "id"))
	if err != nil {
		return 0, repository.ErrNotFound
	}

	return id, nil
}

func (router *Router) decodeBody(res http.ResponseWriter, req *http.Request, dst any) bool {
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		writeJSON(res, http.StatusBadRequest, models.ErrorResponse{Msg: msgInvalidRequestBody, Error: err.Error()})
		return false
	}

	if err := router.validate.Struct(dst); err != nil {
		writeJSON(res, http.StatusBadRequest, models.ErrorResponse{Msg: msgInvalidRequestBody, Error: err.Error()})
		return false
	}

	return true
}

// GetRoot greets the caller.
func (router *Router) GetRoot(res http.ResponseWriter, req *http.Request) {
	res.Header().Set("Content-Type", "text/plain; charset=utf-8")
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write([]byte(WelcomeMessage))
}

// GetPing answers 200 when the storage is reachable.
func (router *Router) GetPing(res http.ResponseWriter, req *http.Request) {
	if err := router.db.Ping(req.Context()); err != nil {
		logger.Log.Errorw("Ping failed", "error", err)
		writeJSON(res, http.StatusInternalServerError, models.ErrorResponse{Msg: msgStorageNotAvailable, Error: err.Error()})
		return
	}

	res.WriteHeader(http.StatusOK)
}

// GetUser returns the kidney counts of a user.
func (router *Router) GetUser(res http.ResponseWriter, req *http.Request) {
	id, err := userID(req)
	if err != nil {
		router.writeError(res, req, err)
		return
	}

	summary, err := router.repo.GetSummary(req.Context(), id)
	if err != nil {
		router.writeError(res, req, err)
		return
	}

	writeJSON(res, http.StatusOK, summary)
}

// PostUser creates a user from {"name": ...}.
func (router *Router) PostUser(res http.ResponseWriter, req *http.Request) {
	var request models.CreateUserRequest
	if !router.decodeBody(res, req, &request) {
		return
	}

	usr, err := router.repo.Create(req.Context(), request.Name)
	if err != nil {
		router.writeError(res, req, err)
		return
	}

	writeJSON(res, http.StatusOK, models.CreateUserResponse{Msg: msgUserAdded, User: usr})
}

func (router *Router) DeleteUser(res http.ResponseWriter, req *http.Request) {
	id, err := userID(req)
	if err != nil {
		router.writeError(res, req, err)
		return
	}

	if err := router.repo.Delete(req.Context(), id); err != nil {
		router.writeError(res, req, err)
		return
	}

	writeJSON(res, http.StatusOK, models.MessageResponse{Msg: msgUserDeleted})
}

// PostUserKidneys appends a kidney from {"isHealthy": bool}.
func (router *Router) PostUserKidneys(res http.ResponseWriter, req *http.Request) {
	id, err := userID(req)
	if err != nil {
		router.writeError(res, req, err)
		return
	}

	var request models.AddKidneyRequest
	if !router.decodeBody(res, req, &request) {
		return
	}

	if err := router.repo.AddKidney(req.Context(), id, *request.IsHealthy); err != nil {
		router.writeError(res, req, err)
		return
	}

	writeJSON(res, http.StatusOK, models.MessageResponse{Msg: msgKidneyAdded})
}

// PutUserKidneys marks every kidney of the user healthy.
func (router *Router) PutUserKidneys(res http.ResponseWriter, req *http.Request) {
	id, err := userID(req)
	if err != nil {
		router.writeError(res, req, err)
		return
	}

	if err := router.repo.MarkAllKidneysHealthy(req.Context(), id); err != nil {
		router.writeError(res, req, err)
		return
	}

	writeJSON(res, http.StatusOK, models.MessageResponse{Msg: msgKidneysHealed})
}

// DeleteUserKidneys removes the unhealthy kidneys of the user.
func (router *Router) DeleteUserKidneys(res http.ResponseWriter, req *http.Request) {
	id, err := userID(req)
	if err != nil {
		router.writeError(res, req, err)
		return
	}

	if err := router.repo.RemoveUnhealthyKidneys(req.Context(), id); err != nil {
		router.writeError(res, req, err)
		return
	}

	writeJSON(res, http.StatusOK, models.MessageResponse{Msg: msgUnhealthyRemoved})
}

func New(
	repo userRepository,
	db pinger,
	optionsProto ...InitOption,
) *chi.Mux {
	options := &initOptions{
		disableGzip: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	myRouter := Router{
		repo:     repo,
		db:       db,
		validate: validator.New(),
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithRequestID,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
	)
	if !options.disableGzip {
		router.Use(
			gzippedhttp.UngzipRequest,
			gzippedhttp.GzipResponse,
		)
	}

	router.Get(`/`, myRouter.GetRoot)
	router.Get(`/ping`, myRouter.GetPing)
	router.Post(`/user`, myRouter.PostUser)
	router.Get(`/user/{id}`, myRouter.GetUser)
	router.Delete(`/user/{id}`, myRouter.DeleteUser)
	router.Post(`/user/{id}/kidneys`, myRouter.PostUserKidneys)
	router.Put(`/user/{id}/kidneys`, myRouter.PutUserKidneys)
	router.Delete(`/user/{id}/kidneys`, myRouter.DeleteUserKidneys)

	return router
}
