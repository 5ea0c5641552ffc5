package rpc

import (
	"encoding/json"
	"net/http"
)

type oracleUpdateParams struct {
	Caller     string `json:"caller"`
	LockDays   uint32 `json:"lockDays"`
	Multiplier uint64 `json:"multiplier"`
}

type oracleBatchParams struct {
	Caller      string   `json:"caller"`
	Multipliers []uint64 `json:"multipliers"`
}

type oracleCallerParams struct {
	Caller string `json:"caller"`
}

type oracleDurationParams struct {
	LockDays uint32 `json:"lockDays"`
}

type oracleEffectiveParams struct {
	BaseAPRBps uint64 `json:"baseAprBps"`
	LockDays   uint32 `json:"lockDays"`
}

type oracleSnapshotParams struct {
	Index uint64 `json:"index"`
}

type oracleMultiplierResult struct {
	Multiplier uint64 `json:"multiplier"`
}

type oracleSnapshotResult struct {
	LockDays   uint32 `json:"lockDays"`
	Multiplier uint64 `json:"multiplier"`
	Timestamp  int64  `json:"timestamp"`
}

type oracleHistoryResult struct {
	Length uint64 `json:"length"`
}

func (s *Server) handleOracleUpdate(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params oracleUpdateParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.OracleUpdate(caller, params.LockDays, params.Multiplier); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleOracleBatchUpdate(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params oracleBatchParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.OracleBatchUpdate(caller, params.Multipliers); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleOracleTogglePause(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params oracleCallerParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.OracleTogglePause(caller); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleOracleGetMultiplier(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params oracleDurationParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	multiplier, err := s.node.OracleMultiplier(params.LockDays)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, oracleMultiplierResult{Multiplier: multiplier})
}

func (s *Server) handleOracleEffectiveAPR(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params oracleEffectiveParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	effective, err := s.node.OracleEffectiveAPR(params.BaseAPRBps, params.LockDays)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, bpsResult{Bps: effective})
}

func (s *Server) handleOracleGetSnapshot(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params oracleSnapshotParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	snap, err := s.node.OracleSnapshot(params.Index)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, oracleSnapshotResult{
		LockDays:   snap.LockDays,
		Multiplier: snap.Multiplier,
		Timestamp:  snap.Timestamp,
	})
}

func (s *Server) handleOracleHistoryLength(w http.ResponseWriter, req *RPCRequest) {
	length, err := s.node.OracleHistoryLength()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, oracleHistoryResult{Length: length})
}
