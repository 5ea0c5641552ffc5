package rpc

import (
	"encoding/json"
	"net/http"
)

type setModulePausedParams struct {
	Caller string `json:"caller"`
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

type getEventsParams struct {
	Limit int `json:"limit"`
}

type eventResult struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func (s *Server) handleSetModulePaused(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params setModulePausedParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.SetModulePaused(caller, params.Module, params.Paused); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

type moduleAddressParams struct {
	Module string `json:"module"`
}

type moduleAddressResult struct {
	Address string `json:"address"`
}

func (s *Server) handleModuleAddress(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params moduleAddressParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	addr, err := s.node.ModuleAccount(params.Module)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, moduleAddressResult{Address: addr.String()})
}

func (s *Server) handleGetEvents(w http.ResponseWriter, req *RPCRequest) {
	limit := 0
	if len(req.Params) == 1 {
		var params getEventsParams
		if err := json.Unmarshal(req.Params[0], &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
			return
		}
		limit = params.Limit
	}
	events := s.node.RecentEvents(limit)
	results := make([]eventResult, 0, len(events))
	for _, evt := range events {
		results = append(results, eventResult{Type: evt.Type, Attributes: evt.Attributes})
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleAdapterTotalAssets(w http.ResponseWriter, req *RPCRequest) {
	total, err := s.node.AdapterAssets()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(total)})
}
