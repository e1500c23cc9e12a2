package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"confide/internal/ratelimit/handler/mocks"
	"confide/internal/ratelimit/models"
	"confide/pkg/platform/middleware/metadata"
	"confide/pkg/requestcontext"
)

// =============================================================================
// Check Handler Test Suite
// =============================================================================
// Justification: the HTTP contract (405 before any work, 429 only on quota,
// 200 for everything else) is the caller-visible surface of the limiter.

type HandlerSuite struct {
	suite.Suite
	router      http.Handler
	ctrl        *gomock.Controller
	mockService *mocks.MockService
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	h := New(s.mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Use(metadata.NewMiddleware(metadata.DefaultConfig()).Handler)
	h.Register(r, "/rate-limit")
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, body, forwardedFor string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/rate-limit", reader)
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

var comment = models.RateClass{Name: models.ClassComment, Window: 30 * time.Second, MaxCount: 10}

// =============================================================================
// Method Handling
// =============================================================================

func (s *HandlerSuite) TestNonPostIsRejectedWithoutCheck() {
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions} {
		s.Run(method, func() {
			rec := s.do(method, `{"action":"post"}`, "1.2.3.4")

			s.Equal(http.StatusMethodNotAllowed, rec.Code)
			s.Equal(http.MethodPost, rec.Header().Get("Allow"))
			s.JSONEq(`{"ok":false,"reason":"Method not allowed"}`, rec.Body.String())
		})
	}
}

// =============================================================================
// Decisions
// =============================================================================

func (s *HandlerSuite) TestAdmitted() {
	s.mockService.EXPECT().Admit(gomock.Any(), "1.2.3.4", "comment").
		Return(models.AdmissionDecision{Class: comment, SourceAddress: "1.2.3.4", ObservedCount: 9, Admitted: true})
	s.mockService.EXPECT().Degraded().Return(false)

	rec := s.do(http.MethodPost, `{"action":"comment"}`, "1.2.3.4, 10.0.0.1")

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"ok":true}`, rec.Body.String())
	s.Equal("10", rec.Header().Get(HeaderLimit))
	s.Equal("0", rec.Header().Get(HeaderRemaining))
	s.Empty(rec.Header().Get(HeaderRetryAfter))
	s.Empty(rec.Header().Get(HeaderStatus))
}

func (s *HandlerSuite) TestRejected() {
	s.mockService.EXPECT().Admit(gomock.Any(), "1.2.3.4", "comment").
		Return(models.AdmissionDecision{Class: comment, SourceAddress: "1.2.3.4", ObservedCount: 10})
	s.mockService.EXPECT().Degraded().Return(false)

	rec := s.do(http.MethodPost, `{"action":"comment"}`, "1.2.3.4")

	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.JSONEq(`{"ok":false,"reason":"Please slow down"}`, rec.Body.String())
	s.Equal("0", rec.Header().Get(HeaderRemaining))
	s.Equal("30", rec.Header().Get(HeaderRetryAfter))
}

func (s *HandlerSuite) TestShedIsRejectedWithShortRetry() {
	s.mockService.EXPECT().Admit(gomock.Any(), "1.2.3.4", "comment").
		Return(models.AdmissionDecision{Class: comment, SourceAddress: "1.2.3.4", ObservedCount: 10, Shed: true})
	s.mockService.EXPECT().Degraded().Return(false)

	rec := s.do(http.MethodPost, `{"action":"comment"}`, "1.2.3.4")

	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.JSONEq(`{"ok":false,"reason":"Please slow down"}`, rec.Body.String())
	s.Equal("1", rec.Header().Get(HeaderRetryAfter))
}

func (s *HandlerSuite) TestMissingAddressHeaderPassesUnknown() {
	s.mockService.EXPECT().Admit(gomock.Any(), requestcontext.UnknownAddress, "post").
		Return(models.AdmissionDecision{SourceAddress: requestcontext.UnknownAddress, Admitted: true, Bypassed: true})
	s.mockService.EXPECT().Degraded().Return(false)

	rec := s.do(http.MethodPost, `{"action":"post"}`, "")

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"ok":true}`, rec.Body.String())
	s.Empty(rec.Header().Get(HeaderLimit), "bypassed checks carry no quota headers")
}

func (s *HandlerSuite) TestLenientBodies() {
	bodies := map[string]string{
		"empty":        "",
		"not json":     "not valid json",
		"wrong type":   `{"action":42}`,
		"json null":    "null",
		"no action":    `{}`,
		"array":        `["post"]`,
		"unterminated": `{"action":"po`,
	}
	for name, body := range bodies {
		s.Run(name, func() {
			s.mockService.EXPECT().Admit(gomock.Any(), "1.2.3.4", "").
				Return(models.AdmissionDecision{Admitted: true})
			s.mockService.EXPECT().Degraded().Return(false)

			rec := s.do(http.MethodPost, body, "1.2.3.4")
			s.Equal(http.StatusOK, rec.Code)
		})
	}
}

func (s *HandlerSuite) TestDegradedHeader() {
	s.mockService.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(models.AdmissionDecision{Class: comment, Admitted: true, FailedOpen: true})
	s.mockService.EXPECT().Degraded().Return(true)

	rec := s.do(http.MethodPost, `{"action":"comment"}`, "1.2.3.4")

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("degraded", rec.Header().Get(HeaderStatus))
}

func (s *HandlerSuite) TestPanicAnswersOK() {
	s.mockService.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, string) models.AdmissionDecision {
			panic("unexpected")
		})

	var rec *httptest.ResponseRecorder
	s.NotPanics(func() {
		rec = s.do(http.MethodPost, `{"action":"post"}`, "1.2.3.4")
	})
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"ok":true}`, rec.Body.String())
}
