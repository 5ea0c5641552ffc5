package rpc

import (
	"encoding/json"
	"net/http"
)

type vaultMintParams struct {
	Caller   string `json:"caller"`
	LockDays uint32 `json:"lockDays"`
	Amount   string `json:"amount"`
}

type vaultClaimParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
}

type vaultClaimableParams struct {
	TokenID uint64 `json:"tokenId"`
}

type vaultSetPausedParams struct {
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

type vaultScheduleParams struct {
	Caller   string            `json:"caller"`
	Schedule map[uint32]uint64 `json:"schedule"`
}

type vaultBaseAPRParams struct {
	LockDays uint32 `json:"lockDays"`
}

type vaultRescueParams struct {
	Caller string `json:"caller"`
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
}

type vaultMintResult struct {
	TokenID uint64 `json:"tokenId"`
}

type pausedResult struct {
	Paused bool `json:"paused"`
}

type bpsResult struct {
	Bps uint64 `json:"bps"`
}

func (s *Server) handleVaultMint(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params vaultMintParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	tokenID, err := s.node.VaultMint(caller, params.LockDays, amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, vaultMintResult{TokenID: tokenID})
}

func (s *Server) handleVaultClaim(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params vaultClaimParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	minted, err := s.node.VaultClaim(caller, params.TokenID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(minted)})
}

func (s *Server) handleVaultClaimable(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params vaultClaimableParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	pending, err := s.node.VaultClaimable(params.TokenID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(pending)})
}

func (s *Server) handleVaultTotalPrincipal(w http.ResponseWriter, req *RPCRequest) {
	total, err := s.node.VaultTotalPrincipal()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(total)})
}

func (s *Server) handleVaultGetPaused(w http.ResponseWriter, req *RPCRequest) {
	paused, err := s.node.VaultPaused()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, pausedResult{Paused: paused})
}

func (s *Server) handleVaultSetPaused(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params vaultSetPausedParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.VaultSetPaused(caller, params.Paused); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleVaultSetAPRSchedule(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params vaultScheduleParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if len(params.Schedule) == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", "schedule required")
		return
	}
	if err := s.node.VaultSetAPRSchedule(caller, params.Schedule); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleVaultGetBaseAPR(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params vaultBaseAPRParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	bps, err := s.node.VaultBaseAPR(params.LockDays)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, bpsResult{Bps: bps})
}

func (s *Server) handleVaultRescue(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params vaultRescueParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.VaultRescue(caller, params.Symbol, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}
