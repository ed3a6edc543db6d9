package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/api/middleware"
	"github.com/qanlink/qanlink-backend/internal/requests"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/pagination"
)

type testRequestsService struct {
	createFn    func(ctx context.Context, seekerID uuid.UUID, params requests.CreateParams) (*requests.View, error)
	broadcastFn func(ctx context.Context, seekerID uuid.UUID, params requests.BroadcastParams) (*requests.View, error)
	acceptFn    func(ctx context.Context, donorID, requestID uuid.UUID) (*requests.View, error)
}

func (s *testRequestsService) Create(ctx context.Context, seekerID uuid.UUID, params requests.CreateParams) (*requests.View, error) {
	if s.createFn != nil {
		return s.createFn(ctx, seekerID, params)
	}
	return &requests.View{}, nil
}

func (s *testRequestsService) BroadcastEmergency(ctx context.Context, seekerID uuid.UUID, params requests.BroadcastParams) (*requests.View, error) {
	if s.broadcastFn != nil {
		return s.broadcastFn(ctx, seekerID, params)
	}
	return &requests.View{}, nil
}

func (s *testRequestsService) Accept(ctx context.Context, donorID, requestID uuid.UUID) (*requests.View, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, donorID, requestID)
	}
	return &requests.View{}, nil
}

func (s *testRequestsService) Decline(ctx context.Context, donorID, requestID uuid.UUID) error {
	return nil
}

func (s *testRequestsService) Cancel(ctx context.Context, seekerID, requestID uuid.UUID) error {
	return nil
}

func (s *testRequestsService) Complete(ctx context.Context, seekerID, requestID uuid.UUID) error {
	return nil
}

func (s *testRequestsService) Detail(ctx context.Context, viewerID, requestID uuid.UUID) (*requests.View, error) {
	return &requests.View{}, nil
}

func (s *testRequestsService) ForSeeker(ctx context.Context, seekerID uuid.UUID, params pagination.Params) (*requests.Page, error) {
	return &requests.Page{}, nil
}

func (s *testRequestsService) ForDonor(ctx context.Context, donorID uuid.UUID) ([]requests.View, error) {
	return nil, nil
}

func (s *testRequestsService) OpenSearch(ctx context.Context, viewerID uuid.UUID, params requests.SearchParams) ([]requests.View, error) {
	return nil, nil
}

func (s *testRequestsService) HomeFeed(ctx context.Context, userID uuid.UUID) ([]requests.View, error) {
	return nil, nil
}

func (s *testRequestsService) HelpedCount(ctx context.Context, donorID uuid.UUID) (int64, error) {
	return 0, nil
}

func TestCreateRequestDecodesBody(t *testing.T) {
	seekerID := uuid.New()
	var got requests.CreateParams
	svc := &testRequestsService{
		createFn: func(ctx context.Context, sid uuid.UUID, params requests.CreateParams) (*requests.View, error) {
			if sid != seekerID {
				t.Fatalf("unexpected seeker %s", sid)
			}
			got = params
			return &requests.View{ID: uuid.New()}, nil
		},
	}

	body := `{"bloodType":"A+","urgency":"urgent","units":2,"hospital":"Central Hospital","city":"Baku"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), seekerID))

	resp := httptest.NewRecorder()
	CreateRequest(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.BloodType != enums.BloodTypeAPositive {
		t.Fatalf("unexpected blood type %s", got.BloodType)
	}
	if got.Urgency != enums.RequestUrgencyUrgent {
		t.Fatalf("unexpected urgency %s", got.Urgency)
	}
	if got.Units != 2 || got.Hospital != "Central Hospital" {
		t.Fatalf("body not forwarded: %+v", got)
	}
	if got.City == nil || *got.City != "Baku" {
		t.Fatal("city not forwarded")
	}
}

func TestCreateRequestRejectsUnknownBloodType(t *testing.T) {
	body := `{"bloodType":"Z+","urgency":"normal","hospital":"Central Hospital"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))

	resp := httptest.NewRecorder()
	CreateRequest(&testRequestsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateRequestRejectsHalfCoordinate(t *testing.T) {
	body := `{"bloodType":"A+","urgency":"normal","hospital":"Central Hospital","lat":40.4}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))

	resp := httptest.NewRecorder()
	CreateRequest(&testRequestsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBroadcastSurfacesRateLimit(t *testing.T) {
	svc := &testRequestsService{
		broadcastFn: func(ctx context.Context, sid uuid.UUID, params requests.BroadcastParams) (*requests.View, error) {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "emergency broadcast already sent recently")
		},
	}

	body := `{"bloodType":"O-","hospital":"Central Hospital"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/broadcast", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))

	resp := httptest.NewRecorder()
	BroadcastEmergency(svc, testLogger())(resp, req)

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestAcceptRequestRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/bad/accept", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
	req = addRouteParam(req, "requestId", "bad")

	resp := httptest.NewRecorder()
	AcceptRequest(&testRequestsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAcceptRequestCallsService(t *testing.T) {
	donorID := uuid.New()
	requestID := uuid.New()
	called := false
	svc := &testRequestsService{
		acceptFn: func(ctx context.Context, did, rid uuid.UUID) (*requests.View, error) {
			called = true
			if did != donorID || rid != requestID {
				t.Fatalf("unexpected ids %s %s", did, rid)
			}
			return &requests.View{ID: rid}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+requestID.String()+"/accept", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), donorID))
	req = addRouteParam(req, "requestId", requestID.String())

	resp := httptest.NewRecorder()
	AcceptRequest(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}
