package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stipendia/stipendia/internal/auth"
	"github.com/stipendia/stipendia/internal/budgets"
	"github.com/stipendia/stipendia/internal/ledger"
	"github.com/stipendia/stipendia/internal/programs"
	"github.com/stipendia/stipendia/internal/protocol"
	"github.com/stipendia/stipendia/internal/shared"
	"github.com/stipendia/stipendia/internal/users"
)

// memStore backs every repository interface the wire tests need. The server
// tests run commands sequentially per client, so plain map mutation under one
// mutex is enough here; transactional rollback behavior is covered by the
// ledger service tests.
type memStore struct {
	mu       sync.Mutex
	users    map[int64]users.User
	budgets  map[int64]budgets.Budget
	programs map[int64]programs.Program
	allocs   map[int64]ledger.FundAllocation
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]users.User{},
		budgets:  map[int64]budgets.Budget{},
		programs: map[int64]programs.Program{},
		allocs:   map[int64]ledger.FundAllocation{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(_ context.Context, user users.User) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Username == user.Username {
			return 0, shared.ErrConflict
		}
	}
	user.ID = r.s.id()
	r.s.users[user.ID] = user
	return user.ID, nil
}

func (r memUserRepo) GetByID(_ context.Context, id int64) (users.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return user, nil
}

func (r memUserRepo) GetByUsername(_ context.Context, username string) (users.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return users.User{}, shared.ErrNotFound
}

func (r memUserRepo) UpdateStatus(_ context.Context, id int64, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.Active = active
	r.s.users[id] = user
	return nil
}

func (r memUserRepo) UpdateProfile(_ context.Context, id int64, update users.ProfileUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.GPA != nil {
		user.GPA = *update.GPA
	}
	if update.EnrollmentYear != nil {
		user.EnrollmentYear = *update.EnrollmentYear
	}
	r.s.users[id] = user
	return nil
}

type memBudgetRepo struct{ s *memStore }

func (r memBudgetRepo) Create(_ context.Context, input budgets.CreateInput) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := r.s.id()
	r.s.budgets[id] = budgets.Budget{
		ID:          id,
		Name:        input.Name,
		FiscalYear:  input.FiscalYear,
		TotalAmount: input.TotalAmount,
		Status:      budgets.StatusDraft,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatedBy:   input.CreatedBy,
	}
	return id, nil
}

func (r memBudgetRepo) GetByID(_ context.Context, id int64) (budgets.Budget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	budget, ok := r.s.budgets[id]
	if !ok {
		return budgets.Budget{}, shared.ErrNotFound
	}
	return budget, nil
}

func (r memBudgetRepo) List(_ context.Context) ([]budgets.Budget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]budgets.Budget, 0, len(r.s.budgets))
	for _, budget := range r.s.budgets {
		out = append(out, budget)
	}
	return out, nil
}

func (r memBudgetRepo) UpdateStatus(_ context.Context, id int64, from, to budgets.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	budget, ok := r.s.budgets[id]
	if !ok {
		return shared.ErrNotFound
	}
	if budget.Status != from {
		return shared.ErrConflict
	}
	budget.Status = to
	r.s.budgets[id] = budget
	return nil
}

func (r memBudgetRepo) ActiveCovering(_ context.Context, at time.Time) ([]budgets.Budget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []budgets.Budget
	for _, budget := range r.s.budgets {
		if budget.Status == budgets.StatusActive && budget.Covers(at) {
			out = append(out, budget)
		}
	}
	return out, nil
}

type memProgramRepo struct{ s *memStore }

func (r memProgramRepo) Create(_ context.Context, input programs.CreateInput) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := r.s.id()
	r.s.programs[id] = programs.Program{
		ID:                  id,
		Name:                input.Name,
		Description:         input.Description,
		FundingAmount:       input.FundingAmount,
		MinGPA:              input.MinGPA,
		Active:              true,
		ApplicationDeadline: input.ApplicationDeadline,
	}
	return id, nil
}

func (r memProgramRepo) GetByID(_ context.Context, id int64) (programs.Program, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	program, ok := r.s.programs[id]
	if !ok {
		return programs.Program{}, shared.ErrNotFound
	}
	return program, nil
}

func (r memProgramRepo) ListActive(_ context.Context) ([]programs.Program, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []programs.Program
	for _, program := range r.s.programs {
		if program.Active {
			out = append(out, program)
		}
	}
	return out, nil
}

func (r memProgramRepo) Update(_ context.Context, id int64, input programs.UpdateInput) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	program, ok := r.s.programs[id]
	if !ok {
		return shared.ErrNotFound
	}
	if input.Name != nil {
		program.Name = *input.Name
	}
	if input.Description != nil {
		program.Description = *input.Description
	}
	if input.FundingAmount != nil {
		program.FundingAmount = *input.FundingAmount
	}
	if input.MinGPA != nil {
		program.MinGPA = *input.MinGPA
	}
	if input.ApplicationDeadline != nil {
		program.ApplicationDeadline = *input.ApplicationDeadline
	}
	if input.Active != nil {
		program.Active = *input.Active
	}
	r.s.programs[id] = program
	return nil
}

func (r memProgramRepo) DeactivateExpired(_ context.Context) (int64, error) {
	return 0, nil
}

type memLedgerRepo struct{ s *memStore }

func (r memLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return fn(ctx, memLedgerTx{s: r.s})
}

func (r memLedgerRepo) GetAllocation(_ context.Context, id int64) (ledger.FundAllocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	alloc, ok := r.s.allocs[id]
	if !ok {
		return ledger.FundAllocation{}, shared.ErrNotFound
	}
	return alloc, nil
}

func (r memLedgerRepo) ListAllocationsByBudget(_ context.Context, budgetID int64) ([]ledger.FundAllocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []ledger.FundAllocation
	for _, alloc := range r.s.allocs {
		if alloc.BudgetID == budgetID {
			out = append(out, alloc)
		}
	}
	return out, nil
}

func (r memLedgerRepo) ListAllocationsByProgram(_ context.Context, programID int64) ([]ledger.FundAllocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []ledger.FundAllocation
	for _, alloc := range r.s.allocs {
		if alloc.ProgramID == programID {
			out = append(out, alloc)
		}
	}
	return out, nil
}

type memLedgerTx struct{ s *memStore }

func (t memLedgerTx) GetBudgetForUpdate(_ context.Context, id int64) (budgets.Budget, error) {
	budget, ok := t.s.budgets[id]
	if !ok {
		return budgets.Budget{}, shared.ErrNotFound
	}
	return budget, nil
}

func (t memLedgerTx) GetProgramForUpdate(_ context.Context, id int64) (programs.Program, error) {
	program, ok := t.s.programs[id]
	if !ok {
		return programs.Program{}, shared.ErrNotFound
	}
	return program, nil
}

func (t memLedgerTx) InsertAllocation(_ context.Context, alloc ledger.FundAllocation) (int64, error) {
	alloc.ID = t.s.id()
	t.s.allocs[alloc.ID] = alloc
	return alloc.ID, nil
}

func (t memLedgerTx) InsertUsage(_ context.Context, usage ledger.FundUsage) (int64, error) {
	return t.s.id(), nil
}

func (t memLedgerTx) AddBudgetAllocated(_ context.Context, budgetID int64, delta float64) error {
	budget := t.s.budgets[budgetID]
	budget.AllocatedAmount += delta
	t.s.budgets[budgetID] = budget
	return nil
}

func (t memLedgerTx) AddProgramAllocated(_ context.Context, programID int64, delta float64) error {
	program := t.s.programs[programID]
	program.AllocatedAmount += delta
	t.s.programs[programID] = program
	return nil
}

func (t memLedgerTx) AddProgramUsed(_ context.Context, programID int64, delta float64) error {
	program := t.s.programs[programID]
	program.UsedAmount += delta
	t.s.programs[programID] = program
	return nil
}

// testClient drives the wire protocol against a running server.
type testClient struct {
	t     *testing.T
	conn  net.Conn
	codec *protocol.Codec
	token string
}

func startServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	store := newMemStore()

	tokens := auth.NewTokenStore(0)
	userSvc := users.NewService(memUserRepo{s: store}, tokens)
	authSvc := auth.NewService(memUserRepo{s: store}, tokens)
	budgetSvc := budgets.NewService(memBudgetRepo{s: store})
	programSvc := programs.NewService(memProgramRepo{s: store}, nil)
	ledgerSvc := ledger.NewService(memLedgerRepo{s: store}, nil, nil)

	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))
	dispatcher := NewDispatcher(logger, Services{
		Auth:     authSvc,
		Users:    userSvc,
		Budgets:  budgetSvc,
		Programs: programSvc,
		Ledger:   ledgerSvc,
	})
	srv := New("127.0.0.1:0", dispatcher, logger, Options{CommandTimeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	return srv, store
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func dial(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn, codec: protocol.NewCodec(conn, 0)}
}

func (c *testClient) send(cmd protocol.Command, payload any) (protocol.Status, string, json.RawMessage) {
	c.t.Helper()
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(c.t, err)
		raw = data
	}
	err := c.codec.WriteRequest(protocol.Request{Command: cmd, Payload: raw, AuthToken: c.token})
	require.NoError(c.t, err)
	status, message, body, token, err := c.codec.ReadResponse()
	require.NoError(c.t, err)
	if token != "" {
		c.token = token
	}
	return status, message, body
}

func seedUser(t *testing.T, store *memStore, username, password string, role users.Role) int64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	store.mu.Lock()
	defer store.mu.Unlock()
	id := store.id()
	store.users[id] = users.User{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		GPA:          3.5,
	}
	return id
}

func (c *testClient) login(username, password string) {
	c.t.Helper()
	status, message, _ := c.send(protocol.CmdLogin, protocol.LoginRequest{Username: username, Password: password})
	require.Equal(c.t, protocol.StatusLoginSuccess, status, message)
	require.NotEmpty(c.t, c.token)
}

func TestShutdownDrainsIdleConnections(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))
	srv := New("127.0.0.1:0", NewDispatcher(logger, Services{}), logger, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	// An idle client that never writes must not block the drain.
	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("serve loop did not drain after shutdown")
	}
}

func TestAuthLifecycleOverWire(t *testing.T) {
	srv, _ := startServer(t)
	client := dial(t, srv)

	status, _, _ := client.send(protocol.CmdGetBudgets, nil)
	require.Equal(t, protocol.StatusAuthenticationRequired, status)

	status, message, _ := client.send(protocol.CmdRegister, protocol.RegisterRequest{
		Username: "mwangi",
		Password: "s3cret-pass",
		FullName: "Grace Mwangi",
		Email:    "grace@example.edu",
		GPA:      3.7,
	})
	require.Equal(t, protocol.StatusRegistrationSuccess, status, message)

	status, _, _ = client.send(protocol.CmdRegister, protocol.RegisterRequest{
		Username: "mwangi",
		Password: "another-pass",
		FullName: "Other Person",
		Email:    "other@example.edu",
	})
	require.Equal(t, protocol.StatusRegistrationUserExists, status)

	status, _, _ = client.send(protocol.CmdLogin, protocol.LoginRequest{Username: "mwangi", Password: "wrong"})
	require.Equal(t, protocol.StatusLoginFailed, status)

	client.login("mwangi", "s3cret-pass")

	status, _, _ = client.send(protocol.CmdLogout, nil)
	require.Equal(t, protocol.StatusLogoutSuccess, status)

	// The revoked token must not authenticate a later command.
	status, _, _ = client.send(protocol.CmdGetScholarshipPrograms, nil)
	require.Equal(t, protocol.StatusAuthenticationRequired, status)
}

func TestUnknownCommandAndBadPayload(t *testing.T) {
	srv, _ := startServer(t)
	client := dial(t, srv)

	status, message, _ := client.send(protocol.Command("DROP_TABLES"), nil)
	require.Equal(t, protocol.StatusUnknownCommand, status)
	require.Contains(t, message, "DROP_TABLES")

	status, message, _ = client.send(protocol.CmdLogin, nil)
	require.Equal(t, protocol.StatusError, status)
	require.Contains(t, message, "LOGIN data is missing")
}

func TestRoleGatingOverWire(t *testing.T) {
	srv, store := startServer(t)
	seedUser(t, store, "student", "student-pass", users.RoleStudent)

	client := dial(t, srv)
	client.login("student", "student-pass")

	status, _, _ := client.send(protocol.CmdCreateBudget, protocol.CreateBudgetRequest{
		Name:        "FY26 General",
		FiscalYear:  2026,
		TotalAmount: 500000,
		StartDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	require.Equal(t, protocol.StatusPermissionDenied, status)

	status, _, _ = client.send(protocol.CmdAllocateFunds, protocol.AllocateFundsRequest{
		BudgetID: 1, ProgramID: 1, Amount: 100,
	})
	require.Equal(t, protocol.StatusPermissionDenied, status)

	status, _, _ = client.send(protocol.CmdGetBudgets, nil)
	require.Equal(t, protocol.StatusPermissionDenied, status)
}

func TestFundFlowOverWire(t *testing.T) {
	srv, store := startServer(t)
	seedUser(t, store, "bursar", "bursar-pass", users.RoleAdmin)

	client := dial(t, srv)
	client.login("bursar", "bursar-pass")

	now := time.Now().UTC()
	status, message, body := client.send(protocol.CmdCreateBudget, protocol.CreateBudgetRequest{
		Name:        "FY26 General",
		FiscalYear:  2026,
		TotalAmount: 10000,
		StartDate:   now.AddDate(0, -1, 0),
		EndDate:     now.AddDate(1, 0, 0),
	})
	require.Equal(t, protocol.StatusDataUpdated, status, message)
	var budget protocol.BudgetResponse
	require.NoError(t, json.Unmarshal(body, &budget))
	require.Equal(t, "DRAFT", budget.Status)

	status, message, body = client.send(protocol.CmdActivateBudget, protocol.BudgetActionRequest{BudgetID: budget.BudgetID})
	require.Equal(t, protocol.StatusDataUpdated, status, message)
	require.NoError(t, json.Unmarshal(body, &budget))
	require.Equal(t, "ACTIVE", budget.Status)

	status, message, body = client.send(protocol.CmdCreateScholarshipProgram, protocol.CreateProgramRequest{
		Name:                "Merit Scholarship",
		FundingAmount:       8000,
		MinGPA:              3.0,
		ApplicationDeadline: now.AddDate(0, 6, 0),
	})
	require.Equal(t, protocol.StatusDataUpdated, status, message)
	var program protocol.ProgramResponse
	require.NoError(t, json.Unmarshal(body, &program))

	status, message, body = client.send(protocol.CmdAllocateFunds, protocol.AllocateFundsRequest{
		BudgetID:  budget.BudgetID,
		ProgramID: program.ProgramID,
		Amount:    4000,
	})
	require.Equal(t, protocol.StatusDataUpdated, status, message)
	var alloc protocol.AllocationResponse
	require.NoError(t, json.Unmarshal(body, &alloc))
	require.Equal(t, 4000.0, alloc.Amount)
	require.Equal(t, 0.0, alloc.PreviousAmount)
	require.Equal(t, 6000.0, alloc.BudgetRemaining)

	// Overdraw past the remaining 6000 must fail without changing state.
	status, _, _ = client.send(protocol.CmdAllocateFunds, protocol.AllocateFundsRequest{
		BudgetID:  budget.BudgetID,
		ProgramID: program.ProgramID,
		Amount:    7000,
	})
	require.Equal(t, protocol.StatusDataUpdateFailed, status)

	status, _, body = client.send(protocol.CmdGetBudgets, nil)
	require.Equal(t, protocol.StatusDataFound, status)
	var list protocol.BudgetListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Budgets, 1)
	require.Equal(t, 4000.0, list.Budgets[0].AllocatedAmount)
	require.Equal(t, 6000.0, list.Budgets[0].RemainingAmount)

	status, message, body = client.send(protocol.CmdRecordFundUsage, protocol.RecordFundUsageRequest{
		ProgramID: program.ProgramID,
		Amount:    1500,
	})
	require.Equal(t, protocol.StatusDataUpdated, status, message)
	var usage protocol.FundUsageResponse
	require.NoError(t, json.Unmarshal(body, &usage))
	require.Equal(t, program.ProgramID, usage.ProgramID)
	require.Equal(t, 1500.0, usage.Amount)
	require.NotZero(t, usage.UsageID)
}

func TestUpdateUserStatusOverWire(t *testing.T) {
	srv, store := startServer(t)
	seedUser(t, store, "registrar", "admin-pass", users.RoleAdmin)
	studentID := seedUser(t, store, "jonas", "student-pass", users.RoleStudent)

	admin := dial(t, srv)
	admin.login("registrar", "admin-pass")

	status, message, body := admin.send(protocol.CmdUpdateUserStatus, protocol.UpdateUserStatusRequest{
		UserID: studentID,
		Active: false,
	})
	require.Equal(t, protocol.StatusDataUpdated, status, message)
	var result protocol.UserStatusResponse
	require.NoError(t, json.Unmarshal(body, &result))
	require.Equal(t, studentID, result.UserID)
	require.False(t, result.Active)

	// Deactivated accounts cannot log in.
	client := dial(t, srv)
	status, _, _ = client.send(protocol.CmdLogin, protocol.LoginRequest{Username: "jonas", Password: "student-pass"})
	require.Equal(t, protocol.StatusLoginFailed, status)
}
