package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sardine-ai/provider-registry/api"
	"github.com/sardine-ai/provider-registry/auth"
	"github.com/sardine-ai/provider-registry/registry"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("error writing response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, api.ErrorResponse{Detail: detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.Registry.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.Registry.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	repositories := make(map[string]registry.SourceStatus)
	for _, st := range s.Registry.Status() {
		repositories[st.Name] = st
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"healthy":      s.Registry.Healthy(),
		"ready":        s.Registry.Ready(),
		"providers":    len(s.Registry.Providers()),
		"repositories": repositories,
	})
}

// handleRawSource serves the YAML bundle of one source.
func (s *Server) handleRawSource(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("source")
	for _, repo := range s.Registry.Repositories() {
		if repo.GetName() != name {
			continue
		}
		w.Header().Set("Content-Type", "application/yaml")
		if _, err := w.Write(repo.GetRawData()); err != nil {
			logrus.WithError(err).Error("error writing response")
		}
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if !s.Issuer.Enabled() {
		writeError(w, http.StatusNotFound, "Token issuance is disabled")
		return
	}
	var req api.TokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	token, err := s.Issuer.Issue(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		logrus.WithField("user", req.Username).Warn("rejected login")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		logrus.WithError(err).Error("error issuing token")
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusCreated, token)
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers := s.Registry.Providers()
	out := api.ProviderCollection{Providers: make([]api.ProviderSummary, 0, len(providers)), TotalEntries: len(providers)}
	for _, p := range providers {
		out.Providers = append(out.Providers, api.ProviderSummary{
			PackageName: p.PackageName,
			Name:        p.Name,
			Description: p.Description,
			Version:     p.LatestVersion(),
			State:       p.State,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("package")
	p, ok := s.Registry.Provider(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Provider "+name+" not found")
		return
	}
	writeJSON(w, http.StatusOK, p.Redacted())
}

func (s *Server) handleConnectionTypes(w http.ResponseWriter, r *http.Request) {
	hooks := s.Registry.ConnectionTypes()
	writeJSON(w, http.StatusOK, api.ConnectionTypeCollection{ConnectionTypes: hooks, TotalEntries: len(hooks)})
}

func (s *Server) handleConnectionType(w http.ResponseWriter, r *http.Request) {
	connType := r.PathValue("type")
	hook, ok := s.Registry.ConnectionType(connType)
	if !ok {
		writeError(w, http.StatusNotFound, "Connection type "+connType+" not found")
		return
	}
	writeJSON(w, http.StatusOK, hook)
}

func (s *Server) handleExecutors(w http.ResponseWriter, r *http.Request) {
	executors := s.Registry.Executors()
	if executors == nil {
		executors = []registry.Executor{}
	}
	writeJSON(w, http.StatusOK, api.ExecutorCollection{Executors: executors, TotalEntries: len(executors)})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.ConfigResponse{Sections: s.Registry.Config()})
}

func (s *Server) handleConfigOption(w http.ResponseWriter, r *http.Request) {
	opt, err := s.Registry.ConfigOption(r.PathValue("section"), r.PathValue("option"))
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	opt.Option = opt.Option.Redacted()
	writeJSON(w, http.StatusOK, opt)
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts := s.Registry.Conflicts()
	writeJSON(w, http.StatusOK, api.ConflictCollection{Conflicts: conflicts, TotalEntries: len(conflicts)})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.VersionResponse{Version: s.Version})
}
