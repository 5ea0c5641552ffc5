package rpc

import (
	"encoding/json"
	"net/http"
)

type insuranceStakeParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type insuranceAddressParams struct {
	Address string `json:"address"`
}

type insuranceCallerParams struct {
	Caller string `json:"caller"`
}

type insurancePayClaimParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
}

type insuranceCoverageParams struct {
	Caller   string `json:"caller"`
	RatioBps uint64 `json:"ratioBps"`
}

type insuranceStakerResult struct {
	Principal   string `json:"principal"`
	Shares      string `json:"shares"`
	RewardBlock uint64 `json:"rewardBlock"`
}

type insurancePayClaimResult struct {
	Reference string `json:"reference"`
}

type insurancePoolResult struct {
	TotalStaked      string `json:"totalStaked"`
	TotalShares      string `json:"totalShares"`
	TotalClaimed     string `json:"totalClaimed"`
	CoverageRatioBps uint64 `json:"coverageRatioBps"`
}

func (s *Server) handleInsuranceStake(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params insuranceStakeParams
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
	if err := s.node.InsuranceStake(caller, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleInsuranceUnstake(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params insuranceStakeParams
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
	if err := s.node.InsuranceUnstake(caller, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleInsuranceClaimRewards(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params insuranceCallerParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	paid, err := s.node.InsuranceClaimRewards(caller)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(paid)})
}

func (s *Server) handleInsurancePending(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params insuranceAddressParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	addr, err := parseBech32Address(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	pending, err := s.node.InsurancePending(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(pending)})
}

func (s *Server) handleInsuranceStakeOf(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params insuranceAddressParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	addr, err := parseBech32Address(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	staker, err := s.node.InsuranceStakeOf(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	result := insuranceStakerResult{Principal: "0", Shares: "0"}
	if staker != nil {
		result.Principal = bigString(staker.Principal)
		result.Shares = bigString(staker.Shares)
		result.RewardBlock = staker.RewardBlock
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleInsurancePayClaim(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params insurancePayClaimParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	recipient, err := parseBech32Address(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	reference, err := s.node.InsurancePayClaim(caller, recipient, amount, params.Reason)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, insurancePayClaimResult{Reference: reference})
}

func (s *Server) handleInsuranceSetCoverageRatio(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params insuranceCoverageParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.InsuranceSetCoverageRatio(caller, params.RatioBps); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleInsuranceMaxCoverage(w http.ResponseWriter, req *RPCRequest) {
	limit, err := s.node.InsuranceMaxCoverage()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(limit)})
}

func (s *Server) handleInsurancePoolInfo(w http.ResponseWriter, req *RPCRequest) {
	pool, err := s.node.InsurancePoolInfo()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, insurancePoolResult{
		TotalStaked:      bigString(pool.TotalStaked),
		TotalShares:      bigString(pool.TotalShares),
		TotalClaimed:     bigString(pool.TotalClaimed),
		CoverageRatioBps: pool.CoverageRatioBps,
	})
}
