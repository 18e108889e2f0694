package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/anicoll/senec-integration/internal/pkg/model"
	"github.com/anicoll/senec-integration/internal/pkg/senec"
	"github.com/anicoll/senec-integration/internal/pkg/web"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotConfigured  = errors.New("backend not configured")
)

type controller interface {
	SetSwitch(ctx context.Context, key string, on bool) error
	SetArraySwitch(ctx context.Context, key string, idx int, on bool) error
	SetNumber(ctx context.Context, key string, v float64) error
	SetArrayNumber(ctx context.Context, key string, idx int, v float64) error
	SetWallboxMode(ctx context.Context, backend model.Backend, slot model.WallboxSlot, mode model.WallboxMode) error
	SetWallboxCurrentLimit(ctx context.Context, backend model.Backend, slot model.WallboxSlot, amps float64) error
	SetWallboxAllowIntercharge(ctx context.Context, backend model.Backend, slot model.WallboxSlot, allow bool) error
	SetSpareCapacity(ctx context.Context, percent int) error
	SetPeakShaving(ctx context.Context, settings web.PeakShaving) error
}

// NewMux registers the write triggers. Every route is a POST.
func NewMux(ctrl controller) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /switch/{key}", Switch(ctrl))
	mux.HandleFunc("POST /array-switch/{key}/{index}", ArraySwitch(ctrl))
	mux.HandleFunc("POST /number/{key}", Number(ctrl))
	mux.HandleFunc("POST /array-number/{key}/{index}", ArrayNumber(ctrl))
	mux.HandleFunc("POST /wallbox/{backend}/{number}/mode", WallboxMode(ctrl))
	mux.HandleFunc("POST /wallbox/{backend}/{number}/current", WallboxCurrent(ctrl))
	mux.HandleFunc("POST /wallbox/{backend}/{number}/intercharge", WallboxIntercharge(ctrl))
	mux.HandleFunc("POST /cloud/spare-capacity", SpareCapacity(ctrl))
	mux.HandleFunc("POST /cloud/peak-shaving", PeakShaving(ctrl))
	return mux
}

// Switch handles requests for on/off values of the local device.
func Switch(ctrl controller) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		req := SwitchRequest{}
		if err := decode(r, &req); err != nil {
			handleError(w, err)
			return
		}
		respond(w, ctrl.SetSwitch(r.Context(), r.PathValue("key"), req.Value))
	}
}

func ArraySwitch(ctrl controller) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := pathInt(r, "index")
		if err != nil {
			handleError(w, err)
			return
		}
		req := SwitchRequest{}
		if err := decode(r, &req); err != nil {
			handleError(w, err)
			return
		}
		respond(w, ctrl.SetArraySwitch(r.Context(), r.PathValue("key"), idx, req.Value))
	}
}

func Number(ctrl controller) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		req := NumberRequest{}
		if err := decode(r, &req); err != nil {
			handleError(w, err)
			return
		}
		respond(w, ctrl.SetNumber(r.Context(), r.PathValue("key"), req.Value))
	}
}

func ArrayNumber(ctrl controller) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := pathInt(r, "index")
		if err != nil {
			handleError(w, err)
			return
		}
		req := NumberRequest{}
		if err := decode(r, &req); err != nil {
			handleError(w, err)
			return
		}
		respond(w, ctrl.SetArrayNumber(r.Context(), r.PathValue("key"), idx, req.Value))
	}
}

// WallboxMode switches a wallbox on either backend; the bridge mirrors it to the other.
func WallboxMode(ctrl controller) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		backend, slot, err := wallboxTarget(r)
		if err != nil {
			handleError(w, err)
			return
		}
		req := WallboxModeRequest{}
		if err := decode(r, &req); err != nil {
			handleError(w, err)
			return
		}
		mode, err := model.ParseWallboxMode(strings.ToLower(req.Mode))
		if err != nil {
			handleError(w, err)
			return
		}
		zap.L().Info("switching wallbox to", zap.String("backend", backend.String()), zap.Stringer("wallbox", slot), zap.String("mode", mode.String()))
		respond(w, ctrl.SetWallboxMode(r.Context(), backend, slot, mode))
	}
}

func WallboxCurrent(ctrl controller) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		backend, slot, err := wallboxTarget(r)
		if err != nil {
			handleError(w, err)
			return
		}
		req := NumberRequest{}
		if err := decode(r, &req); err != nil {
			handleError(w, err)
			return
		}
		respond(w, ctrl.SetWallboxCurrentLimit(r.Context(), backend, slot, req.Value))
	}
}

// WallboxIntercharge allows or forbids battery discharge into a wallbox; mirrored like the mode.
func WallboxIntercharge(ctrl controller) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		backend, slot, err := wallboxTarget(r)
		if err != nil {
			handleError(w, err)
			return
		}
		req := SwitchRequest{}
		if err := decode(r, &req); err != nil {
			handleError(w, err)
			return
		}
		respond(w, ctrl.SetWallboxAllowIntercharge(r.Context(), backend, slot, req.Value))
	}
}

func SpareCapacity(ctrl controller) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		req := SpareCapacityRequest{}
		if err := decode(r, &req); err != nil {
			handleError(w, err)
			return
		}
		respond(w, ctrl.SetSpareCapacity(r.Context(), req.Percent))
	}
}

func PeakShaving(ctrl controller) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		req := PeakShavingRequest{}
		if err := decode(r, &req); err != nil {
			handleError(w, err)
			return
		}
		respond(w, ctrl.SetPeakShaving(r.Context(), req.settings()))
	}
}

func decode(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidRequest, name, r.PathValue(name))
	}
	return v, nil
}

func wallboxTarget(r *http.Request) (model.Backend, model.WallboxSlot, error) {
	backend := model.Backend(r.PathValue("backend"))
	if backend != model.BackendLocal && backend != model.BackendCloud {
		return "", 0, fmt.Errorf("%w: backend %q", ErrInvalidRequest, backend)
	}
	n, err := pathInt(r, "number")
	if err != nil {
		return "", 0, err
	}
	slot, err := model.WallboxSlotFromNumber(n)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return backend, slot, nil
}

func respond(w http.ResponseWriter, err error) {
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, senec.ErrIndexOutOfRange), errors.Is(err, model.ErrUnknownWallboxMode):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, senec.ErrUnknownKey):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, ErrNotConfigured):
		w.WriteHeader(http.StatusServiceUnavailable)
	case errors.Is(err, web.ErrUnauthorized), errors.Is(err, senec.ErrWriteFailed):
		w.WriteHeader(http.StatusBadGateway)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	w.Write([]byte(err.Error()))
}
