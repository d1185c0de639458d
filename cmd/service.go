package cmd

import (
	"context"
	"errors"
	"os"
	"strings"

	"sqlbench/cli/internal/backend"
	"sqlbench/cli/internal/config"
	"sqlbench/cli/internal/dsn"
	"sqlbench/cli/internal/execution"
	"sqlbench/cli/internal/keychain"
	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/session"
	"sqlbench/cli/internal/sqlexec"
)

// Service modes.
const (
	modeDirect = "direct"
	modeREST   = "rest"
)

// queryService is the Query Service selected for this invocation.
type queryService struct {
	backend.QueryService
	mode string
	// target is a display form of where statements go; never carries secrets.
	target string
	close  func() error
}

func (q *queryService) Close() error {
	if q.close == nil {
		return nil
	}
	return q.close()
}

// openQueryService picks direct mode when a DSN is configured (flag, env or
// keychain) and the REST client otherwise.
func openQueryService(ctx context.Context, c config.Config) (*queryService, error) {
	if raw := resolveDSN(c); raw != "" {
		opts := []sqlexec.Option{
			sqlexec.WithMaxRows(c.MaxRows),
			sqlexec.WithQueryTimeout(c.QueryTimeout),
			sqlexec.WithLogger(logger),
		}
		var auditFile *os.File
		if c.AuditLog != "" {
			audit, f, err := logging.OpenAudit(c.AuditLog)
			if err != nil {
				return nil, err
			}
			auditFile = f
			opts = append(opts, sqlexec.WithAuditLog(audit))
		}
		ex, err := sqlexec.Open(ctx, raw, opts...)
		if err != nil {
			if auditFile != nil {
				auditFile.Close()
			}
			return nil, err
		}
		target := raw
		if info, err := dsn.ParseInfo(raw); err == nil {
			target = info.Redacted()
		}
		logger.Debug("direct mode", logger.Args("target", target, "audit_log", c.AuditLog))
		closeAll := func() error {
			err := ex.Close()
			if auditFile != nil {
				err = errors.Join(err, auditFile.Close())
			}
			return err
		}
		return &queryService{QueryService: ex, mode: modeDirect, target: target, close: closeAll}, nil
	}

	opts := []backend.Option{
		backend.WithTimeout(c.RequestTimeout),
		backend.WithLogger(logger),
	}
	if token := resolveToken(); token != "" {
		opts = append(opts, backend.WithToken(token))
	}
	client := backend.New(c.BackendURL, opts...)
	logger.Debug("rest mode", logger.Args("backend", client.BaseURL()))
	return &queryService{QueryService: client, mode: modeREST, target: client.BaseURL()}, nil
}

// resolveDSN returns the configured DSN, falling back to the keychain.
func resolveDSN(c config.Config) string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}
	km, err := keychain.GetManager()
	if err != nil {
		logger.Debug("keychain unavailable", logger.Args("error", err.Error()))
		return ""
	}
	v, err := km.LoadDSN()
	if err != nil {
		return ""
	}
	return v
}

// resolveToken returns SQLBENCH_TOKEN or the token stored in the keychain.
func resolveToken() string {
	if v := strings.TrimSpace(os.Getenv(config.EnvPrefix + "TOKEN")); v != "" {
		return v
	}
	km, err := keychain.GetManager()
	if err != nil {
		return ""
	}
	v, err := km.LoadAPIToken()
	if err != nil {
		return ""
	}
	return v
}

// newWorkbench builds a registry and coordinator over svc.
func newWorkbench(c config.Config, svc backend.QueryService) (*session.Registry, *execution.Coordinator) {
	var ids session.IDGenerator = &session.CounterIDs{}
	if c.IDScheme == config.IDSchemeUUID {
		ids = session.UUIDs{}
	}
	opts := []session.Option{session.WithIDGenerator(ids), session.WithLogger(logger)}
	if c.DefaultDraft != "" {
		opts = append(opts, session.WithDefaultDraft(c.DefaultDraft))
	}
	reg := session.NewRegistry(opts...)
	return reg, execution.New(reg, svc, execution.WithLogger(logger))
}
