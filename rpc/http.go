package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"relicledger/core"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the node's operations over JSON-RPC 2.0. Governance
// methods require the bearer token from RELIC_RPC_TOKEN when one is set.
type Server struct {
	node      *core.Node
	authToken string
}

func NewServer(node *core.Node) *Server {
	token := strings.TrimSpace(os.Getenv("RELIC_RPC_TOKEN"))
	return &Server{node: node, authToken: token}
}

// Router mounts the RPC endpoint alongside health and metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

// Start serves the router on addr, blocking until the listener fails.
func (s *Server) Start(addr string) error {
	fmt.Printf("Starting JSON-RPC server on %s\n", addr)
	return http.ListenAndServe(addr, s.Router())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps an engine rejection onto a server error response.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	writeError(w, http.StatusOK, id, codeServerError, err.Error(), nil)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "bearer token required"}
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid token"}
	}
	return nil
}

// governanceMethods gate on the bearer token: they act with owner or
// operator authority.
var governanceMethods = map[string]bool{
	"token_mint":                 true,
	"vault_setPaused":            true,
	"vault_setAPRSchedule":       true,
	"vault_rescue":               true,
	"oracle_updateMultiplier":    true,
	"oracle_batchUpdate":         true,
	"oracle_togglePause":         true,
	"insurance_payClaim":         true,
	"insurance_setCoverageRatio": true,
	"market_setPaused":           true,
	"ledger_setModulePaused":     true,
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	if governanceMethods[req.Method] {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}

	switch req.Method {
	case "token_getBalance":
		s.handleTokenBalance(w, req)
	case "token_getSupply":
		s.handleTokenSupply(w, req)
	case "token_transfer":
		s.handleTokenTransfer(w, req)
	case "token_approve":
		s.handleTokenApprove(w, req)
	case "token_allowance":
		s.handleTokenAllowance(w, req)
	case "token_mint":
		s.handleTokenMint(w, req)
	case "token_burn":
		s.handleTokenBurn(w, req)
	case "position_getOwner":
		s.handlePositionOwner(w, req)
	case "position_getMeta":
		s.handlePositionMeta(w, req)
	case "position_getURI":
		s.handlePositionURI(w, req)
	case "position_list":
		s.handlePositionList(w, req)
	case "position_transfer":
		s.handlePositionTransfer(w, req)
	case "vault_mint":
		s.handleVaultMint(w, req)
	case "vault_claim":
		s.handleVaultClaim(w, req)
	case "vault_claimable":
		s.handleVaultClaimable(w, req)
	case "vault_totalPrincipal":
		s.handleVaultTotalPrincipal(w, req)
	case "vault_getPaused":
		s.handleVaultGetPaused(w, req)
	case "vault_setPaused":
		s.handleVaultSetPaused(w, req)
	case "vault_setAPRSchedule":
		s.handleVaultSetAPRSchedule(w, req)
	case "vault_getBaseAPR":
		s.handleVaultGetBaseAPR(w, req)
	case "vault_rescue":
		s.handleVaultRescue(w, req)
	case "oracle_updateMultiplier":
		s.handleOracleUpdate(w, req)
	case "oracle_batchUpdate":
		s.handleOracleBatchUpdate(w, req)
	case "oracle_togglePause":
		s.handleOracleTogglePause(w, req)
	case "oracle_getMultiplier":
		s.handleOracleGetMultiplier(w, req)
	case "oracle_effectiveAPR":
		s.handleOracleEffectiveAPR(w, req)
	case "oracle_getSnapshot":
		s.handleOracleGetSnapshot(w, req)
	case "oracle_historyLength":
		s.handleOracleHistoryLength(w, req)
	case "insurance_stake":
		s.handleInsuranceStake(w, req)
	case "insurance_unstake":
		s.handleInsuranceUnstake(w, req)
	case "insurance_claimRewards":
		s.handleInsuranceClaimRewards(w, req)
	case "insurance_pending":
		s.handleInsurancePending(w, req)
	case "insurance_stakeOf":
		s.handleInsuranceStakeOf(w, req)
	case "insurance_payClaim":
		s.handleInsurancePayClaim(w, req)
	case "insurance_setCoverageRatio":
		s.handleInsuranceSetCoverageRatio(w, req)
	case "insurance_maxCoverage":
		s.handleInsuranceMaxCoverage(w, req)
	case "insurance_poolInfo":
		s.handleInsurancePoolInfo(w, req)
	case "market_list":
		s.handleMarketList(w, req)
	case "market_unlist":
		s.handleMarketUnlist(w, req)
	case "market_buy":
		s.handleMarketBuy(w, req)
	case "market_makeOffer":
		s.handleMarketMakeOffer(w, req)
	case "market_acceptOffer":
		s.handleMarketAcceptOffer(w, req)
	case "market_cancelOffer":
		s.handleMarketCancelOffer(w, req)
	case "market_setPaused":
		s.handleMarketSetPaused(w, req)
	case "market_getListing":
		s.handleMarketGetListing(w, req)
	case "market_getOffers":
		s.handleMarketGetOffers(w, req)
	case "market_getStats":
		s.handleMarketGetStats(w, req)
	case "ledger_setModulePaused":
		s.handleSetModulePaused(w, req)
	case "ledger_moduleAddress":
		s.handleModuleAddress(w, req)
	case "ledger_getEvents":
		s.handleGetEvents(w, req)
	case "adapter_totalAssets":
		s.handleAdapterTotalAssets(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}
