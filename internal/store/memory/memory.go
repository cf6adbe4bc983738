// Package memory is a process-local storage collaborator with the same
// repository surface as the Postgres store. Data is lost on restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aquagest/apiserver/internal/store"
	"github.com/aquagest/apiserver/types"
)

// Store holds every table behind a single mutex, which serializes writes
// and makes uniqueness checks atomic.
type Store struct {
	mu sync.RWMutex

	users        []types.User
	requests     []types.Request
	details      []types.RequestDetail
	points       []types.SupplyPoint
	availability []types.Availability
	inquiries    []types.Inquiry

	nextID map[string]int

	// failWith, when set, is returned by every operation. Tests use it to
	// simulate an unreachable database.
	failWith error
}

func NewStore() *Store {
	return &Store{nextID: make(map[string]int)}
}

// FailWith makes every subsequent operation return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *Store) Users() *UserRepository               { return &UserRepository{s: s} }
func (s *Store) Requests() *RequestRepository         { return &RequestRepository{s: s} }
func (s *Store) SupplyPoints() *SupplyPointRepository { return &SupplyPointRepository{s: s} }
func (s *Store) Availability() *AvailabilityRepository {
	return &AvailabilityRepository{s: s}
}
func (s *Store) Inquiries() *InquiryRepository { return &InquiryRepository{s: s} }

// Ping reports the simulated connectivity state.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failWith
}

func (s *Store) next(table string) int {
	s.nextID[table]++
	return s.nextID[table]
}

// fieldFunc returns the value of a named column for a record.
type fieldFunc[T any] func(record T, column string) any

func filterRecords[T any](table store.Table, records []T, f store.Filter, field fieldFunc[T]) ([]T, error) {
	if err := table.Validate(f); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, record := range records {
		if matches(record, f, field) {
			out = append(out, record)
		}
	}
	return out, nil
}

func matches[T any](record T, f store.Filter, field fieldFunc[T]) bool {
	for _, cond := range f {
		if !cond.Matches(field(record, cond.Column)) {
			return false
		}
	}
	return true
}

func first[T any](records []T) (T, error) {
	if len(records) == 0 {
		var zero T
		return zero, store.ErrNotFound
	}
	return records[0], nil
}

func conflict(table, column string, value any) error {
	return fmt.Errorf("%w: duplicate %s.%s %v", store.ErrConflict, table, column, value)
}

// UserRepository implements the user repository over Store.
type UserRepository struct{ s *Store }

func userField(u types.User, column string) any {
	switch column {
	case "id_usuario":
		return u.ID
	case "nombre":
		return u.Name
	case "apellidos":
		return u.Surname
	case "email":
		return u.Email
	case "telefono":
		return u.Phone
	case "tipo_usuario":
		return u.Role
	}
	return nil
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return types.User{}, r.s.failWith
	}
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return types.User{}, conflict("usuarios", "email", user.Email)
		}
	}
	if user.Role == "" {
		user.Role = types.RoleRequester
	}
	user.ID = r.s.next("usuarios")
	r.s.users = append(r.s.users, user)
	return user, nil
}

func (r *UserRepository) GetByField(ctx context.Context, field string, value any) (types.User, error) {
	users, err := r.Filter(ctx, store.Where(store.Eq(field, value)))
	if err != nil {
		return types.User{}, err
	}
	return first(users)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.GetByField(ctx, "email", email)
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	return r.Filter(ctx, nil)
}

func (r *UserRepository) Filter(_ context.Context, f store.Filter) ([]types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	return filterRecords(store.UsersTable, r.s.users, f, userField)
}

func (r *UserRepository) Count(ctx context.Context, f store.Filter) (int, error) {
	users, err := r.Filter(ctx, f)
	return len(users), err
}

// RequestRepository implements the request repository over Store.
type RequestRepository struct{ s *Store }

func requestField(req types.Request, column string) any {
	switch column {
	case "id_solicitud":
		return req.ID
	case "codigo_solicitud":
		return req.Code
	case "tipo_solicitud":
		return req.Type
	case "id_usuario_solicitante":
		return req.RequesterID
	case "fecha_solicitud":
		return req.CreatedAt
	case "id_asesor":
		return req.AdvisorID
	}
	return nil
}

// Create stores the request and its detail lines atomically.
func (r *RequestRepository) Create(_ context.Context, request types.Request) (types.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return types.Request{}, r.s.failWith
	}
	for _, existing := range r.s.requests {
		if existing.Code == request.Code {
			return types.Request{}, conflict("solicitudes", "codigo_solicitud", request.Code)
		}
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}

	request.ID = r.s.next("solicitudes")
	details := make([]types.RequestDetail, 0, len(request.Details))
	for _, detail := range request.Details {
		detail.RequestID = request.ID
		detail.ID = r.s.next("detalle_solicitudes")
		details = append(details, detail)
	}

	stored := request
	stored.Details = nil
	r.s.requests = append(r.s.requests, stored)
	r.s.details = append(r.s.details, details...)

	request.Details = details
	return request, nil
}

func (r *RequestRepository) GetByField(ctx context.Context, field string, value any) (types.Request, error) {
	requests, err := r.Filter(ctx, store.Where(store.Eq(field, value)))
	if err != nil {
		return types.Request{}, err
	}
	return first(requests)
}

func (r *RequestRepository) List(ctx context.Context) ([]types.Request, error) {
	return r.Filter(ctx, nil)
}

func (r *RequestRepository) Filter(_ context.Context, f store.Filter) ([]types.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	return filterRecords(store.RequestsTable, r.s.requests, f, requestField)
}

func (r *RequestRepository) Count(ctx context.Context, f store.Filter) (int, error) {
	requests, err := r.Filter(ctx, f)
	return len(requests), err
}

func (r *RequestRepository) Details(_ context.Context, requestID int) ([]types.RequestDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	details := make([]types.RequestDetail, 0)
	for _, detail := range r.s.details {
		if detail.RequestID == requestID {
			details = append(details, detail)
		}
	}
	return details, nil
}

// DetailCount returns the number of stored detail lines across requests.
func (r *RequestRepository) DetailCount() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.details)
}

// SupplyPointRepository implements the supply point repository over Store.
type SupplyPointRepository struct{ s *Store }

func pointField(p types.SupplyPoint, column string) any {
	switch column {
	case "id_punto":
		return p.ID
	case "codigo_punto":
		return p.Code
	case "estado":
		return p.Status
	case "direccion":
		return p.Address
	case "capacidad":
		return p.Capacity
	}
	return nil
}

func (r *SupplyPointRepository) Create(_ context.Context, point types.SupplyPoint) (types.SupplyPoint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkPoint(point); err != nil {
		return types.SupplyPoint{}, err
	}
	return r.insertPoint(point), nil
}

// CreateWithAvailability inserts point and its availability under one lock;
// a rejected availability leaves no point behind.
func (r *SupplyPointRepository) CreateWithAvailability(_ context.Context, point types.SupplyPoint, availability types.Availability) (types.SupplyPoint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkPoint(point); err != nil {
		return types.SupplyPoint{}, err
	}
	if err := checkAvailability(availability); err != nil {
		return types.SupplyPoint{}, err
	}

	point = r.insertPoint(point)
	availability.PointID = point.ID
	r.s.insertAvailability(availability)
	return point, nil
}

func (r *SupplyPointRepository) checkPoint(point types.SupplyPoint) error {
	if r.s.failWith != nil {
		return r.s.failWith
	}
	for _, existing := range r.s.points {
		if existing.Code == point.Code {
			return conflict("puntos_suministro", "codigo_punto", point.Code)
		}
	}
	return nil
}

func (r *SupplyPointRepository) insertPoint(point types.SupplyPoint) types.SupplyPoint {
	if point.Status == "" {
		point.Status = types.PointActive
	}
	point.ID = r.s.next("puntos_suministro")
	r.s.points = append(r.s.points, point)
	return point
}

func (r *SupplyPointRepository) GetByField(ctx context.Context, field string, value any) (types.SupplyPoint, error) {
	points, err := r.Filter(ctx, store.Where(store.Eq(field, value)))
	if err != nil {
		return types.SupplyPoint{}, err
	}
	return first(points)
}

func (r *SupplyPointRepository) List(ctx context.Context) ([]types.SupplyPoint, error) {
	return r.Filter(ctx, nil)
}

func (r *SupplyPointRepository) Filter(_ context.Context, f store.Filter) ([]types.SupplyPoint, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	return filterRecords(store.SupplyPointsTable, r.s.points, f, pointField)
}

func (r *SupplyPointRepository) Count(ctx context.Context, f store.Filter) (int, error) {
	points, err := r.Filter(ctx, f)
	return len(points), err
}

// AvailabilityRepository implements the availability repository over Store.
type AvailabilityRepository struct{ s *Store }

func availabilityField(a types.Availability, column string) any {
	switch column {
	case "id_disponibilidad":
		return a.ID
	case "id_punto":
		return a.PointID
	case "estado_disponibilidad":
		return a.Status
	case "cantidad_disponible":
		return a.Quantity
	}
	return nil
}

func (r *AvailabilityRepository) Create(_ context.Context, availability types.Availability) (types.Availability, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return types.Availability{}, r.s.failWith
	}
	if err := checkAvailability(availability); err != nil {
		return types.Availability{}, err
	}
	return r.s.insertAvailability(availability), nil
}

// checkAvailability mirrors the cantidad_disponible >= 0 column check.
func checkAvailability(availability types.Availability) error {
	if availability.Quantity.IsNegative() {
		return fmt.Errorf("disponibilidad: cantidad_disponible %s is negative", availability.Quantity)
	}
	return nil
}

func (s *Store) insertAvailability(availability types.Availability) types.Availability {
	if availability.Status == "" {
		availability.Status = types.AvailabilityAvailable
	}
	availability.ID = s.next("disponibilidad")
	s.availability = append(s.availability, availability)
	return availability
}

func (r *AvailabilityRepository) GetByField(ctx context.Context, field string, value any) (types.Availability, error) {
	records, err := r.Filter(ctx, store.Where(store.Eq(field, value)))
	if err != nil {
		return types.Availability{}, err
	}
	return first(records)
}

func (r *AvailabilityRepository) List(ctx context.Context) ([]types.Availability, error) {
	return r.Filter(ctx, nil)
}

func (r *AvailabilityRepository) Filter(_ context.Context, f store.Filter) ([]types.Availability, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	return filterRecords(store.AvailabilityTable, r.s.availability, f, availabilityField)
}

func (r *AvailabilityRepository) Count(ctx context.Context, f store.Filter) (int, error) {
	records, err := r.Filter(ctx, f)
	return len(records), err
}

// InquiryRepository implements the inquiry repository over Store.
type InquiryRepository struct{ s *Store }

func inquiryField(i types.Inquiry, column string) any {
	switch column {
	case "id_consulta":
		return i.ID
	case "descripcion_consulta":
		return i.Description
	case "estado_consulta":
		return i.Status
	case "fecha_consulta":
		return i.CreatedAt
	case "usuarios_id_usuario":
		return i.UserID
	}
	return nil
}

func (r *InquiryRepository) Create(_ context.Context, inquiry types.Inquiry) (types.Inquiry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return types.Inquiry{}, r.s.failWith
	}
	if inquiry.Status == "" {
		inquiry.Status = types.InquiryPending
	}
	if inquiry.CreatedAt.IsZero() {
		inquiry.CreatedAt = time.Now().UTC()
	}
	inquiry.ID = r.s.next("consultas")
	r.s.inquiries = append(r.s.inquiries, inquiry)
	return inquiry, nil
}

func (r *InquiryRepository) GetByField(ctx context.Context, field string, value any) (types.Inquiry, error) {
	inquiries, err := r.Filter(ctx, store.Where(store.Eq(field, value)))
	if err != nil {
		return types.Inquiry{}, err
	}
	return first(inquiries)
}

func (r *InquiryRepository) List(ctx context.Context) ([]types.Inquiry, error) {
	return r.Filter(ctx, nil)
}

func (r *InquiryRepository) Filter(_ context.Context, f store.Filter) ([]types.Inquiry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	return filterRecords(store.InquiriesTable, r.s.inquiries, f, inquiryField)
}

func (r *InquiryRepository) Count(ctx context.Context, f store.Filter) (int, error) {
	inquiries, err := r.Filter(ctx, f)
	return len(inquiries), err
}

// ErrUnavailable is a convenience error for simulating outages.
var ErrUnavailable = errors.New("memory store unavailable")
