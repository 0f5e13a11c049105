package exec

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	pgddl "triplestore/internal/dialect/postgres"
	"triplestore/internal/query"
	"triplestore/internal/registry"
	"triplestore/internal/store"
	"triplestore/internal/value"
)

// testRepo spins up a throwaway Postgres container bootstrapped with the
// fixed schema, the way internal/store's own integration tests do, and
// returns a Repository bound directly to the pool (queries here are all
// reads, so no per-request transaction is needed).
func testRepo(t *testing.T) *store.Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("triplestore_query_test"),
		postgres.WithUsername("triplestore"),
		postgres.WithPassword("triplestore"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	s, err := store.Open(ctx, dsn)
	require.NoError(t, err, "failed to open store")
	t.Cleanup(s.Close)

	for _, stmt := range pgddl.BootstrapStatements() {
		_, err := s.Pool().Exec(ctx, stmt)
		require.NoError(t, err, "bootstrap statement failed: %s", stmt)
	}

	return store.NewRepository(s.Pool())
}

// seedPeople creates two Person statements: Ada and Bob, each with a
// `type` and `name` attribute off a fresh subject, and returns their
// subject handles plus the well-known type/name predicate handles.
func seedPeople(t *testing.T, repo *store.Repository) (ada, bob, typePred, namePred value.StatementHandle) {
	t.Helper()
	ctx := context.Background()

	typePred = value.NewNamedHandle("exec-test:type")
	namePred = value.NewNamedHandle("exec-test:name")
	emailPred := value.NewNamedHandle("exec-test:email")
	personType := value.NewNamedHandle("exec-test:person")

	reg := registry.New()
	typeS := reg.UniqueStatement(&value.Statement{Handle: typePred})
	nameS := reg.UniqueStatement(&value.Statement{Handle: namePred})
	emailS := reg.UniqueStatement(&value.Statement{Handle: emailPred})
	personS := reg.UniqueStatement(&value.Statement{Handle: personType})

	ada = value.NewStatementHandle()
	bob = value.NewStatementHandle()
	adaSubj := reg.UniqueStatement(&value.Statement{Handle: ada})
	bobSubj := reg.UniqueStatement(&value.Statement{Handle: bob})

	reg.UniqueStatement(&value.Statement{
		Handle: value.NewStatementHandle(), Subject: adaSubj, Predicate: typeS,
		Object: value.FromStatement(personS), HasTriple: true,
	})
	reg.UniqueStatement(&value.Statement{
		Handle: value.NewStatementHandle(), Subject: adaSubj, Predicate: nameS,
		Object: value.FromString("Ada"), HasTriple: true,
	})
	reg.UniqueStatement(&value.Statement{
		Handle: value.NewStatementHandle(), Subject: adaSubj, Predicate: emailS,
		Object: value.FromString("ada@example.com"), HasTriple: true,
	})
	reg.UniqueStatement(&value.Statement{
		Handle: value.NewStatementHandle(), Subject: bobSubj, Predicate: typeS,
		Object: value.FromStatement(personS), HasTriple: true,
	})
	reg.UniqueStatement(&value.Statement{
		Handle: value.NewStatementHandle(), Subject: bobSubj, Predicate: nameS,
		Object: value.FromString("Bob"), HasTriple: true,
	})

	require.NoError(t, repo.CreateStatements(ctx, reg))
	return ada, bob, typePred, namePred
}

func TestExecuteJoinQueryReturnsMatchingHandle(t *testing.T) {
	repo := testRepo(t)
	ada, _, typePred, namePred := seedPeople(t, repo)
	ctx := context.Background()

	node := map[string]any{
		fmt.Sprintf("match_object.%s", value.HandleString(typePred)): "s:" + value.HandleString(value.NewNamedHandle("exec-test:person")),
		fmt.Sprintf("match_object.%s", value.HandleString(namePred)): "str:Ada",
	}

	plan, err := query.Compile(node, value.KindStatement, "", 10)
	require.NoError(t, err)

	e := New(repo)
	page, err := e.Execute(ctx, plan)
	require.NoError(t, err)

	require.Len(t, page.Handles, 1)
	assert.Equal(t, ada, page.Handles[0])
	assert.False(t, page.More)
}

func TestExecuteFetchOnlyDescriptorPopulatesAdditional(t *testing.T) {
	repo := testRepo(t)
	ada, _, typePred, namePred := seedPeople(t, repo)
	ctx := context.Background()

	emailPred := value.NewNamedHandle("exec-test:email")
	personType := value.NewNamedHandle("exec-test:person")

	node := map[string]any{
		fmt.Sprintf("match_object.%s", value.HandleString(typePred)):  "s:" + value.HandleString(personType),
		fmt.Sprintf("match_object.%s", value.HandleString(namePred)):  "str:Ada",
		fmt.Sprintf("fetch_object.%s", value.HandleString(emailPred)): map[string]any{},
	}

	plan, err := query.Compile(node, value.KindStatement, "", 10)
	require.NoError(t, err)

	e := New(repo)
	page, err := e.Execute(ctx, plan)
	require.NoError(t, err)

	require.Len(t, page.Handles, 1)
	assert.Equal(t, ada, page.Handles[0])

	found := false
	for _, s := range page.Additional {
		if s.Predicate.Handle == emailPred {
			found = true
			assert.Equal(t, "str:ada@example.com", value.Serialize(s.Object))
		}
	}
	assert.True(t, found, "expected an email statement in the additional bag")
}

func TestExecutePagination(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	typePred := value.NewNamedHandle("exec-page:type")
	personType := value.NewNamedHandle("exec-page:person")

	reg := registry.New()
	typeS := reg.UniqueStatement(&value.Statement{Handle: typePred})
	personS := reg.UniqueStatement(&value.Statement{Handle: personType})

	var handles []value.StatementHandle
	for i := 0; i < 3; i++ {
		h := value.NewStatementHandle()
		handles = append(handles, h)
		subj := reg.UniqueStatement(&value.Statement{Handle: h})
		reg.UniqueStatement(&value.Statement{
			Handle: value.NewStatementHandle(), Subject: subj, Predicate: typeS,
			Object: value.FromStatement(personS), HasTriple: true,
		})
	}
	require.NoError(t, repo.CreateStatements(ctx, reg))

	node := map[string]any{
		fmt.Sprintf("match_object.%s", value.HandleString(typePred)): "s:" + value.HandleString(personType),
	}

	plan, err := query.Compile(node, value.KindStatement, "", 2)
	require.NoError(t, err)
	e := New(repo)
	first, err := e.Execute(ctx, plan)
	require.NoError(t, err)
	require.Len(t, first.Handles, 2)
	assert.True(t, first.More)

	plan2, err := query.Compile(node, value.KindStatement, value.HandleString(first.Handles[len(first.Handles)-1]), 2)
	require.NoError(t, err)
	second, err := e.Execute(ctx, plan2)
	require.NoError(t, err)

	for _, h := range second.Handles {
		assert.NotContains(t, first.Handles, h)
	}
}
