package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/sagespace/internal/dependencies/mocks"
	"github.com/mcoot/sagespace/internal/services/account"
	"github.com/mcoot/sagespace/internal/services/password"
	"github.com/mcoot/sagespace/internal/services/session"
	"github.com/mcoot/sagespace/internal/storage/memory"
	"github.com/mcoot/sagespace/internal/testutil"
)

// TestSessionSecret signs session tokens in test apps
const TestSessionSecret = "test-session-secret-do-not-use"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MockSender *mocks.MockSender
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockSender := mocks.NewMockSender()

	hasher, err := password.New(password.Config{
		Algorithm:  password.AlgorithmBcrypt,
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		panic(err)
	}

	app, err := newWithDependencies(
		store, mockClock, mockRandom, mockSender, hasher,
		account.DefaultConfig(),
		session.Config{Secret: TestSessionSecret},
		testutil.NopLogger(),
	)
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MockSender: mockSender,
	}
}
