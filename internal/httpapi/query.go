package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"triplestore/internal/query"
	"triplestore/internal/query/exec"
	"triplestore/internal/store"
	"triplestore/internal/value"
)

type queryBody struct {
	Query any     `json:"query"`
	After *string `json:"after"`
	Target string `json:"target"`
	Limit  int    `json:"limit"`
}

type queryResponse struct {
	Handles    []string                 `json:"handles,omitempty"`
	Digests    []string                 `json:"digests,omitempty"`
	More       bool                     `json:"more"`
	Statements map[string]statementJSON `json:"statements,omitempty"`
}

func (h *handlers) queryByBody(w http.ResponseWriter, r *http.Request) {
	var body queryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", value.ErrParse, err))
		return
	}

	target, err := parseTarget(body.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	after := ""
	if body.After != nil {
		after = *body.After
	}
	if body.Limit <= 0 {
		body.Limit = 50
	}

	h.runQuery(w, r, body.Query, target, after, body.Limit)
}

func (h *handlers) queryByGet(w http.ResponseWriter, r *http.Request) {
	target, err := parseTarget(chi.URLParam(r, "target"))
	if err != nil {
		writeError(w, err)
		return
	}

	params := r.URL.Query()
	node, err := buildQueryNode(params)
	if err != nil {
		writeError(w, err)
		return
	}

	after := params.Get("after")
	limit := 50
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: limit %q", value.ErrParse, raw))
			return
		}
		limit = n
	}

	h.runQuery(w, r, node, target, after, limit)
}

func (h *handlers) runQuery(w http.ResponseWriter, r *http.Request, node any, target value.Kind, after string, limit int) {
	ctx := r.Context()

	plan, err := query.Compile(node, target, after, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	repo := store.NewRepository(h.db.Pool())
	page, err := exec.New(repo).Execute(ctx, plan)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := queryResponse{More: page.More}
	for _, hv := range page.Handles {
		resp.Handles = append(resp.Handles, value.HandleString(hv))
	}
	for _, d := range page.Digests {
		resp.Digests = append(resp.Digests, value.DigestString(d))
	}
	if len(page.Additional) > 0 {
		resp.Statements = make(map[string]statementJSON, len(page.Additional))
		for k, s := range page.Additional {
			resp.Statements[k] = toStatementJSON(s)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseTarget(s string) (value.Kind, error) {
	switch s {
	case "statement", "":
		return value.KindStatement, nil
	case "blob":
		return value.KindBlob, nil
	default:
		return "", fmt.Errorf("%w: unknown query target %q", query.ErrQueryShape, s)
	}
}

// buildQueryNode translates the flattened query-by-GET encoding (spec
// §6: "j_<entity>=<descriptor>", "c_<entity>=<descriptor>",
// "f_<entity>=<value>") into the nested mapping query.Compile expects.
// Entity names form a dotted path ("a.b" names an entity "b" whose
// parent is the entity "a"); a bare name's parent is the root. "j_"
// and "c_" differ only by convention — a "c_" entry is expected to
// carry a fetch_object/fetch_subject descriptor, since in the nested
// JSON form it is exactly the descriptor's direction (not a separate
// flag) that puts an entity's statements in the output.
func buildQueryNode(params url.Values) (any, error) {
	descriptors := make(map[string]string)
	filters := make(map[string]string)

	for key := range params {
		val := params.Get(key)
		switch {
		case strings.HasPrefix(key, "j_"):
			descriptors[strings.TrimPrefix(key, "j_")] = val
		case strings.HasPrefix(key, "c_"):
			descriptors[strings.TrimPrefix(key, "c_")] = val
		case strings.HasPrefix(key, "f_"):
			filters[strings.TrimPrefix(key, "f_")] = val
		}
	}

	root := make(map[string]any)
	nodes := map[string]map[string]any{"": root, "main": root}

	var ensure func(name string) map[string]any
	ensure = func(name string) map[string]any {
		if n, ok := nodes[name]; ok {
			return n
		}
		descriptor, ok := descriptors[name]
		if !ok {
			return root
		}
		parentName := ""
		alias := name
		if i := strings.LastIndex(name, "."); i >= 0 {
			parentName, alias = name[:i], name[i+1:]
		}
		_ = alias
		parent := ensure(parentName)
		node := make(map[string]any)
		nodes[name] = node
		parent[descriptor] = node
		return node
	}

	for name := range descriptors {
		ensure(name)
	}
	for name, val := range filters {
		node := ensure(name)
		node["eq"] = val
	}

	return root, nil
}
