package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

// parseJSONArg decodes an optional JSON argument. An empty string yields nil.
func parseJSONArg(raw, what string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%s must be valid JSON: %w", what, err)
	}
	return v, nil
}

func parseParamsArg(raw string) (map[string]interface{}, error) {
	v, err := parseJSONArg(raw, "params")
	if err != nil || v == nil {
		return nil, err
	}
	params, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("params must be a JSON object")
	}
	return params, nil
}

// displayResponse prints the status line and the body, pretty-printing structured bodies.
func (r *REPL) displayResponse(resp *brightspace.Response) {
	fmt.Fprintf(r.out, "Status: %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	switch resp.Body.Kind() {
	case brightspace.BodyStructured:
		v, _ := resp.Body.Structured()
		fmt.Fprintln(r.out, logging.PrettyJSON(v))
	case brightspace.BodyText:
		text, _ := resp.Body.Text()
		fmt.Fprintln(r.out, text)
	case brightspace.BodyBinary:
		fmt.Fprintf(r.out, "[Binary: %s, %d bytes]\n", resp.Header.Get("Content-Type"), len(resp.Body.Raw()))
	}
}

func (r *REPL) handleWhoAmI(ctx context.Context) error {
	who, err := r.session.WhoAmI(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, logging.PrettyJSON(who))
	return nil
}

func (r *REPL) handleGet(ctx context.Context, path, paramsJSON string) error {
	params, err := parseParamsArg(paramsJSON)
	if err != nil {
		return err
	}
	resp, err := r.session.Do(ctx, brightspace.Request{Method: http.MethodGet, Path: path, Params: params, ExpectStructured: true})
	if err != nil {
		return err
	}
	r.displayResponse(resp)
	return nil
}

func (r *REPL) handleCall(ctx context.Context, method, path, bodyJSON string) error {
	body, err := parseJSONArg(bodyJSON, "body")
	if err != nil {
		return err
	}
	resp, err := r.session.Do(ctx, brightspace.Request{Method: method, Path: path, Body: body, ExpectStructured: true})
	if err != nil {
		return err
	}
	r.displayResponse(resp)
	return nil
}

func (r *REPL) handleFamily(ctx context.Context, family brightspace.Family, method, tail, bodyJSON string) error {
	body, err := parseJSONArg(bodyJSON, "body")
	if err != nil {
		return err
	}
	resp, err := r.session.Dispatch(ctx, family, brightspace.Request{Method: method, Path: tail, Body: body, ExpectStructured: true}, nil)
	if err != nil {
		return err
	}
	r.displayResponse(resp)
	return nil
}

func (r *REPL) handlePaginate(ctx context.Context, path, maxPages string) error {
	opts := brightspace.PageOptions{}
	if maxPages != "" {
		n, err := strconv.Atoi(maxPages)
		if err != nil || n <= 0 {
			return fmt.Errorf("max-pages must be a positive integer, got %q", maxPages)
		}
		opts.MaxPages = n
	}

	result, err := r.session.Paginate(ctx, path, opts)
	if err != nil {
		return err
	}
	if result.Failed {
		fmt.Fprintf(r.out, "Page failed with status %d:\n%s\n", result.StatusCode, result.Data.String())
		return nil
	}
	fmt.Fprintf(r.out, "Fetched %d items\n", len(result.Items))
	fmt.Fprintln(r.out, logging.PrettyJSON(result.Items))
	if result.LastBookmark != "" {
		fmt.Fprintf(r.out, "More items available; last bookmark: %s\n", result.LastBookmark)
	}
	return nil
}

func (r *REPL) handlePath(service, tail, version string) error {
	family, err := brightspace.ParseFamily(service)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, r.session.Path(family, tail, version))
	return nil
}

func (r *REPL) handleVersions(ctx context.Context) error {
	products, err := r.session.DiscoverVersions(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		fmt.Fprintf(r.out, "  %-6s latest %-8s supported: %s\n", p.ProductCode, p.LatestVersion, strings.Join(p.SupportedVersions, ", "))
	}
	for _, f := range []brightspace.Family{brightspace.FamilyLP, brightspace.FamilyLE} {
		fmt.Fprintf(r.out, "Configured %s candidates: %s\n", f, strings.Join(r.session.Candidates(f, nil), ", "))
	}
	return nil
}

// handleVerbose toggles debug logging of requests
func (r *REPL) handleVerbose(setting string) error {
	switch strings.ToLower(setting) {
	case "on":
		r.logger.SetVerbose(true)
		fmt.Fprintln(r.out, "Verbose logging enabled")
	case "off":
		r.logger.SetVerbose(false)
		fmt.Fprintln(r.out, "Verbose logging disabled")
	default:
		return fmt.Errorf("invalid setting: %s. Use 'on' or 'off'", setting)
	}
	return nil
}
