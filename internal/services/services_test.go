package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/aquagest/apiserver/internal/apperr"
	"github.com/aquagest/apiserver/internal/metrics"
	"github.com/aquagest/apiserver/internal/notify"
	"github.com/aquagest/apiserver/internal/session"
	"github.com/aquagest/apiserver/internal/storage"
	"github.com/aquagest/apiserver/internal/store"
	"github.com/aquagest/apiserver/internal/store/memory"
	"github.com/aquagest/apiserver/internal/validation"
	"github.com/aquagest/apiserver/types"
)

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	data [][]byte
	err  error
}

func (a *fakeArchive) List(_ context.Context, prefix string) ([]storage.Object, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []storage.Object
	for i, key := range a.keys {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.Object{Key: key, Size: int64(len(a.data[i]))})
		}
	}
	return out, nil
}

func (a *fakeArchive) Get(_ context.Context, key string) (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	for i, k := range a.keys {
		if k == key {
			return io.NopCloser(bytes.NewReader(a.data[i])), nil
		}
	}
	return nil, storage.ErrObjectNotFound
}

func (a *fakeArchive) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	a.keys = append(a.keys, key)
	a.data = append(a.data, body)
	return nil
}

type ServicesSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	hub     *notify.Hub
	gate    *session.Gate
	repos   Repositories
	archive *fakeArchive

	users     *UserService
	requests  *RequestService
	points    *SupplyPointService
	inquiries *InquiryService
	dashboard *DashboardService
	reports   *ReportService
}

func TestServicesSuite(t *testing.T) {
	suite.Run(t, new(ServicesSuite))
}

func (s *ServicesSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.hub = notify.NewHub(notify.WithLogger(zerolog.Nop()))
	s.repos = Repositories{
		Users:        s.store.Users(),
		Requests:     s.store.Requests(),
		SupplyPoints: s.store.SupplyPoints(),
		Availability: s.store.Availability(),
		Inquiries:    s.store.Inquiries(),
	}
	s.gate = session.NewGate(s.repos.Users, s.hub)
	s.archive = &fakeArchive{}
	m := metrics.New()

	s.users = NewUserService(s.repos.Users, s.gate, s.hub)
	s.requests = NewRequestService(s.repos.Requests, s.repos.SupplyPoints, s.gate, s.hub)
	s.points = NewSupplyPointService(s.repos.SupplyPoints, s.repos.Availability, s.gate)
	s.inquiries = NewInquiryService(s.repos.Inquiries, s.gate)
	s.dashboard = NewDashboardService(s.repos, m)
	s.reports = NewReportService(s.repos, s.hub, s.archive, m)

	created, err := s.points.Seed(s.ctx, DefaultSeedPoints)
	s.Require().NoError(err)
	s.Require().Equal(3, created)
}

func (s *ServicesSuite) register(email string, role types.Role) types.User {
	user, err := s.users.Register(s.ctx, validation.UserRegistration{
		Name:     "Test",
		Email:    email,
		Password: "secret",
		Role:     string(role),
	})
	s.Require().NoError(err)
	return user
}

func (s *ServicesSuite) login(email string) {
	_, err := s.users.Login(s.ctx, email, "secret")
	s.Require().NoError(err)
}

func (s *ServicesSuite) newRequest(code string) validation.NewRequest {
	return validation.NewRequest{
		Code: code,
		Type: "uso_domestico",
		Details: []validation.DetailLine{
			{PointID: 1, Quantity: decimal.NewFromInt(20)},
		},
	}
}

func (s *ServicesSuite) eventTypes() []types.EventType {
	var out []types.EventType
	for _, event := range s.hub.Events() {
		out = append(out, event.Type)
	}
	return out
}

func (s *ServicesSuite) TestRegisterDuplicateEmailConflicts() {
	first := s.register("a@x.com", types.RoleRequester)

	_, err := s.users.Register(s.ctx, validation.UserRegistration{Name: "Otro", Email: "a@x.com", Password: "secret"})
	s.True(errors.Is(err, apperr.ErrConflict))

	found, err := s.repos.Users.GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.Equal(first.ID, found.ID)
}

func (s *ServicesSuite) TestRegisterPasswordLength() {
	_, err := s.users.Register(s.ctx, validation.UserRegistration{Name: "Ana", Email: "a@x.com", Password: "123"})
	s.True(errors.Is(err, apperr.ErrValidation))
	s.Equal("Contraseña muy corta (mínimo 4 caracteres)", apperr.Message(err, ""))

	user, err := s.users.Register(s.ctx, validation.UserRegistration{Name: "Ana", Email: "a@x.com", Password: "1234"})
	s.Require().NoError(err)
	s.Equal(types.RoleRequester, user.Role)
	s.NotEqual("1234", user.PasswordHash)
}

func (s *ServicesSuite) TestRegisterRejectsUnknownRole() {
	_, err := s.users.Register(s.ctx, validation.UserRegistration{Name: "Ana", Email: "a@x.com", Password: "1234", Role: "ADMIN"})
	s.True(errors.Is(err, apperr.ErrValidation))
}

func (s *ServicesSuite) TestRegisterPublishesEvent() {
	user := s.register("a@x.com", types.RoleAdvisor)

	events := s.hub.Events()
	s.Require().Len(events, 1)
	s.Equal(types.EventUserRegistered, events[0].Type)
	s.Equal(map[string]any{"user_id": user.ID, "email": "a@x.com", "tipo": "ASESOR"}, events[0].Payload)
}

func (s *ServicesSuite) TestRegisterStorageFailurePropagates() {
	s.store.FailWith(memory.ErrUnavailable)

	_, err := s.users.Register(s.ctx, validation.UserRegistration{Name: "Ana", Email: "a@x.com", Password: "1234"})
	s.True(errors.Is(err, apperr.ErrStorage))
	s.True(errors.Is(err, memory.ErrUnavailable))
}

func (s *ServicesSuite) TestLoginAndCurrentUser() {
	user := s.register("a@x.com", types.RoleRequester)
	s.login("a@x.com")

	principal, ok := s.users.Current()
	s.Require().True(ok)
	s.Equal(user.ID, principal.UserID)
	s.Equal(types.RoleRequester, principal.Role)

	other := s.register("b@x.com", types.RoleAdvisor)
	s.login("b@x.com")

	principal, ok = s.users.Current()
	s.Require().True(ok)
	s.Equal(other.ID, principal.UserID)
}

func (s *ServicesSuite) TestCreateRequestRequiresSession() {
	_, err := s.requests.Create(s.ctx, s.newRequest("SOL-0001"))
	s.True(errors.Is(err, apperr.ErrUnauthorized))

	_, err = s.requests.Create(s.ctx, validation.NewRequest{})
	s.True(errors.Is(err, apperr.ErrUnauthorized))
	s.Equal(0, s.store.Requests().DetailCount())
}

func (s *ServicesSuite) TestCreateRequestValidation() {
	s.register("a@x.com", types.RoleRequester)
	s.login("a@x.com")

	_, err := s.requests.Create(s.ctx, s.newRequest("SOL1"))
	s.True(errors.Is(err, apperr.ErrValidation))
	s.Equal("Código muy corto (mínimo 5 caracteres)", apperr.Message(err, ""))

	noDetails := s.newRequest("SOL-0001")
	noDetails.Details = nil
	_, err = s.requests.Create(s.ctx, noDetails)
	s.True(errors.Is(err, apperr.ErrValidation))

	request, err := s.requests.Create(s.ctx, s.newRequest("SOL-0001"))
	s.Require().NoError(err)
	s.NotZero(request.ID)
	s.Len(request.Details, 1)
	s.Contains(s.eventTypes(), types.EventNewRequest)
}

func (s *ServicesSuite) TestMalformedDetailLeavesNoParent() {
	s.register("a@x.com", types.RoleRequester)
	s.login("a@x.com")

	cmd := s.newRequest("SOL-0001")
	cmd.Details = append(cmd.Details, validation.DetailLine{PointID: 2, Quantity: decimal.Zero})
	_, err := s.requests.Create(s.ctx, cmd)
	s.True(errors.Is(err, apperr.ErrValidation))

	cmd = s.newRequest("SOL-0002")
	cmd.Details = append(cmd.Details, validation.DetailLine{PointID: 99, Quantity: decimal.NewFromInt(1)})
	_, err = s.requests.Create(s.ctx, cmd)
	s.True(errors.Is(err, apperr.ErrValidation))

	total, err := s.repos.Requests.Count(s.ctx, nil)
	s.Require().NoError(err)
	s.Zero(total)
	s.Zero(s.store.Requests().DetailCount())
	s.NotContains(s.eventTypes(), types.EventNewRequest)
}

func (s *ServicesSuite) TestDuplicateRequestCode() {
	s.register("a@x.com", types.RoleRequester)
	s.login("a@x.com")

	_, err := s.requests.Create(s.ctx, s.newRequest("SOL-0001"))
	s.Require().NoError(err)
	_, err = s.requests.Create(s.ctx, s.newRequest("SOL-0001"))
	s.True(errors.Is(err, apperr.ErrConflict))
}

func (s *ServicesSuite) TestListRequestsIsRoleScoped() {
	ana := s.register("ana@x.com", types.RoleRequester)
	luis := s.register("luis@x.com", types.RoleRequester)
	s.register("asesor@x.com", types.RoleAdvisor)
	s.register("residente@x.com", types.RoleResidentStaff)

	s.login("ana@x.com")
	_, err := s.requests.Create(s.ctx, s.newRequest("ANA-0001"))
	s.Require().NoError(err)
	_, err = s.requests.Create(s.ctx, s.newRequest("ANA-0002"))
	s.Require().NoError(err)

	s.login("luis@x.com")
	_, err = s.requests.Create(s.ctx, s.newRequest("LUIS-0001"))
	s.Require().NoError(err)

	s.login("ana@x.com")
	own := s.requests.List(s.ctx)
	s.Len(own, 2)
	for _, r := range own {
		s.Equal(ana.ID, r.RequesterID)
	}

	s.login("luis@x.com")
	own = s.requests.List(s.ctx)
	s.Require().Len(own, 1)
	s.Equal(luis.ID, own[0].RequesterID)

	s.login("asesor@x.com")
	s.Len(s.requests.List(s.ctx), 3)

	s.login("residente@x.com")
	s.Len(s.requests.List(s.ctx), 3)
}

func (s *ServicesSuite) TestListRequestsDegradesToEmpty() {
	s.Empty(s.requests.List(s.ctx))

	s.register("asesor@x.com", types.RoleAdvisor)
	s.login("asesor@x.com")
	s.store.FailWith(memory.ErrUnavailable)

	list := s.requests.List(s.ctx)
	s.NotNil(list)
	s.Empty(list)
}

func (s *ServicesSuite) TestGetRequestHidesOtherUsersRequests() {
	s.register("ana@x.com", types.RoleRequester)
	s.register("luis@x.com", types.RoleRequester)

	s.login("ana@x.com")
	created, err := s.requests.Create(s.ctx, s.newRequest("ANA-0001"))
	s.Require().NoError(err)

	got, err := s.requests.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Len(got.Details, 1)

	s.login("luis@x.com")
	_, err = s.requests.Get(s.ctx, created.ID)
	s.True(errors.Is(err, apperr.ErrNotFound))

	_, err = s.requests.Get(s.ctx, 999)
	s.True(errors.Is(err, apperr.ErrNotFound))
}

func (s *ServicesSuite) TestSeedCreatesAvailability() {
	points := s.points.List(s.ctx)
	s.Require().Len(points, 3)
	s.Equal("PUNTO-001", points[0].Code)

	records, err := s.points.Availability(s.ctx, points[0].ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.True(records[0].Quantity.Equal(decimal.NewFromInt(800)))
	s.Equal(types.AvailabilityAvailable, records[0].Status)

	again, err := s.points.Seed(s.ctx, DefaultSeedPoints)
	s.Require().NoError(err)
	s.Zero(again)
}

func (s *ServicesSuite) TestCreateSupplyPointRequiresResidentStaff() {
	cmd := validation.NewSupplyPoint{Code: "PUNTO-004", Address: "Barrio Este", Capacity: decimal.NewFromInt(300)}

	_, err := s.points.Create(s.ctx, cmd)
	s.True(errors.Is(err, apperr.ErrUnauthorized))

	s.register("asesor@x.com", types.RoleAdvisor)
	s.login("asesor@x.com")
	_, err = s.points.Create(s.ctx, cmd)
	s.True(errors.Is(err, apperr.ErrForbidden))

	s.register("residente@x.com", types.RoleResidentStaff)
	s.login("residente@x.com")
	point, err := s.points.Create(s.ctx, cmd)
	s.Require().NoError(err)
	s.Equal(types.PointActive, point.Status)

	_, err = s.points.Create(s.ctx, cmd)
	s.True(errors.Is(err, apperr.ErrConflict))
}

// availabilityRejectingPoints fails the combined point+availability write
// the first time, the way a rejected availability insert does.
type availabilityRejectingPoints struct {
	SupplyPointRepository
	failures int
}

func (r *availabilityRejectingPoints) CreateWithAvailability(ctx context.Context, point types.SupplyPoint, availability types.Availability) (types.SupplyPoint, error) {
	if r.failures > 0 {
		r.failures--
		availability.Quantity = decimal.NewFromInt(-1)
	}
	return r.SupplyPointRepository.CreateWithAvailability(ctx, point, availability)
}

func (s *ServicesSuite) TestCreateSupplyPointLeavesNothingWhenAvailabilityFails() {
	points := &availabilityRejectingPoints{SupplyPointRepository: s.repos.SupplyPoints, failures: 1}
	service := NewSupplyPointService(points, s.repos.Availability, s.gate)
	s.register("residente@x.com", types.RoleResidentStaff)
	s.login("residente@x.com")
	cmd := validation.NewSupplyPoint{Code: "PUNTO-010", Address: "Barrio Sur", Capacity: decimal.NewFromInt(100)}

	_, err := service.Create(s.ctx, cmd)
	s.True(errors.Is(err, apperr.ErrStorage))
	_, err = s.repos.SupplyPoints.GetByField(s.ctx, "codigo_punto", "PUNTO-010")
	s.True(errors.Is(err, store.ErrNotFound))

	point, err := service.Create(s.ctx, cmd)
	s.Require().NoError(err)
	records, err := service.Availability(s.ctx, point.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.True(records[0].Quantity.Equal(decimal.NewFromInt(80)))
}

func (s *ServicesSuite) TestAvailabilityUnknownPoint() {
	_, err := s.points.Availability(s.ctx, 42)
	s.True(errors.Is(err, apperr.ErrNotFound))
}

func (s *ServicesSuite) TestListSupplyPointsDegradesToEmpty() {
	s.store.FailWith(memory.ErrUnavailable)
	s.Empty(s.points.List(s.ctx))
}

func (s *ServicesSuite) TestInquiries() {
	_, err := s.inquiries.Create(s.ctx, validation.NewInquiry{Description: "¿Horario?"})
	s.True(errors.Is(err, apperr.ErrUnauthorized))

	ana := s.register("ana@x.com", types.RoleRequester)
	s.register("luis@x.com", types.RoleRequester)
	s.register("asesor@x.com", types.RoleAdvisor)

	s.login("ana@x.com")
	inquiry, err := s.inquiries.Create(s.ctx, validation.NewInquiry{Description: "¿Horario del punto norte?"})
	s.Require().NoError(err)
	s.Equal(types.InquiryPending, inquiry.Status)
	s.Equal(ana.ID, inquiry.UserID)

	s.login("luis@x.com")
	s.Empty(s.inquiries.List(s.ctx))

	s.login("asesor@x.com")
	s.Len(s.inquiries.List(s.ctx), 1)
}

func (s *ServicesSuite) TestDashboardStats() {
	s.register("ana@x.com", types.RoleRequester)
	s.login("ana@x.com")
	_, err := s.requests.Create(s.ctx, s.newRequest("SOL-0001"))
	s.Require().NoError(err)
	_, err = s.inquiries.Create(s.ctx, validation.NewInquiry{Description: "¿Horario?"})
	s.Require().NoError(err)

	_, err = s.repos.Requests.Create(s.ctx, types.Request{
		Code: "OLD-0001", Type: "x", RequesterID: 1, CreatedAt: time.Now().Add(-72 * time.Hour),
	})
	s.Require().NoError(err)
	_, err = s.repos.SupplyPoints.Create(s.ctx, types.SupplyPoint{
		Code: "PUNTO-009", Status: types.PointInactive, Address: "Cerrado", Capacity: decimal.NewFromInt(10),
	})
	s.Require().NoError(err)

	stats := s.dashboard.Stats(s.ctx)
	s.Equal(types.DashboardStats{
		TotalUsers:     1,
		TotalRequests:  2,
		TotalPoints:    4,
		TotalInquiries: 1,
		ActivePoints:   3,
		RequestsToday:  1,
	}, stats)
}

func (s *ServicesSuite) TestDashboardStatsZeroOnFailure() {
	s.store.FailWith(memory.ErrUnavailable)
	s.Equal(types.DashboardStats{}, s.dashboard.Stats(s.ctx))
}

func (s *ServicesSuite) TestGenerateUsersReport() {
	s.register("ana@x.com", types.RoleRequester)
	s.register("luis@x.com", types.RoleAdvisor)

	doc, err := s.reports.Generate(s.ctx, "usuarios")
	s.Require().NoError(err)
	s.Equal(2, doc.TotalRecords)
	s.Equal("👥 Reporte de Usuarios", doc.Type)
	s.False(doc.GeneratedAt.IsZero())
	s.Equal("No proporcionado", doc.Records[0]["telefono"])

	events := s.hub.Events()
	last := events[len(events)-1]
	s.Equal(types.EventReportGenerated, last.Type)
	s.Equal(map[string]any{"tipo": "usuarios", "registros": 2}, last.Payload)

	s.Require().Len(s.archive.keys, 1)
	s.Contains(s.archive.keys[0], "reportes/usuarios/")
	s.True(bytes.Contains(s.archive.data[0], []byte(`"total_registros":2`)))
}

func (s *ServicesSuite) TestArchivedReports() {
	_, err := s.reports.Generate(s.ctx, "puntos")
	s.Require().NoError(err)
	_, err = s.reports.Generate(s.ctx, "usuarios")
	s.Require().NoError(err)

	all, err := s.reports.Archived(s.ctx, "")
	s.Require().NoError(err)
	s.Len(all, 2)

	points, err := s.reports.Archived(s.ctx, "points")
	s.Require().NoError(err)
	s.Require().Len(points, 1)
	s.Contains(points[0].Key, "reportes/puntos/")

	none, err := s.reports.Archived(s.ctx, "solicitudes")
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)

	noArchive := NewReportService(s.repos, s.hub, nil, nil)
	_, err = noArchive.Archived(s.ctx, "")
	s.True(errors.Is(err, apperr.ErrNotFound))
}

func (s *ServicesSuite) TestArchivedDocument() {
	_, err := s.reports.Generate(s.ctx, "puntos")
	s.Require().NoError(err)
	listed, err := s.reports.Archived(s.ctx, "puntos")
	s.Require().NoError(err)
	s.Require().Len(listed, 1)

	rc, err := s.reports.ArchivedDocument(s.ctx, "/"+listed[0].Key)
	s.Require().NoError(err)
	defer rc.Close()
	var doc types.ReportDocument
	s.Require().NoError(json.NewDecoder(rc).Decode(&doc))
	s.Equal(3, doc.TotalRecords)

	_, err = s.reports.ArchivedDocument(s.ctx, "reportes/puntos/missing.json")
	s.True(errors.Is(err, apperr.ErrNotFound))

	for _, key := range []string{"otros/a.json", "reportes/../secret.json", "reportes/puntos/a.pdf"} {
		_, err = s.reports.ArchivedDocument(s.ctx, key)
		s.True(errors.Is(err, apperr.ErrValidation), key)
	}

	s.archive.err = errors.New("bucket offline")
	_, err = s.reports.ArchivedDocument(s.ctx, listed[0].Key)
	s.True(errors.Is(err, apperr.ErrStorage))

	noArchive := NewReportService(s.repos, s.hub, nil, nil)
	_, err = noArchive.ArchivedDocument(s.ctx, listed[0].Key)
	s.True(errors.Is(err, apperr.ErrNotFound))
}

func (s *ServicesSuite) TestGenerateUnknownReportFallsBack() {
	doc, err := s.reports.Generate(s.ctx, "inventario")
	s.Require().NoError(err)
	s.Equal("📄 Reporte", doc.Type)
	s.Empty(doc.Description)
	s.Zero(doc.TotalRecords)
	s.Contains(s.eventTypes(), types.EventReportGenerated)
}

func (s *ServicesSuite) TestGenerateReportStorageFailurePropagates() {
	s.store.FailWith(memory.ErrUnavailable)

	_, err := s.reports.Generate(s.ctx, "puntos")
	s.True(errors.Is(err, apperr.ErrStorage))
	s.NotContains(s.eventTypes(), types.EventReportGenerated)
}

func (s *ServicesSuite) TestArchiveFailureDoesNotFailReport() {
	s.archive.err = errors.New("bucket missing")

	doc, err := s.reports.Generate(s.ctx, "puntos")
	s.Require().NoError(err)
	s.Equal(3, doc.TotalRecords)
}

func (s *ServicesSuite) TestFailingListenerDoesNotUndoWrite() {
	s.hub.Subscribe(notify.ListenerFunc(func(context.Context, types.Event) error {
		return errors.New("listener down")
	}))

	user := s.register("ana@x.com", types.RoleRequester)

	found, err := s.repos.Users.GetByEmail(s.ctx, "ana@x.com")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)
}

func TestArchiveKey(t *testing.T) {
	at := time.Date(2026, 5, 4, 9, 30, 15, 123000000, time.UTC)

	assert.Equal(t, "reportes/puntos/20260504T093015.123Z.json", ArchiveKey("points", at))
	assert.Equal(t, "reportes/generico/20260504T093015.123Z.json", ArchiveKey("otro", at))
}
