// Copyright 2026 The ContentHub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"net/http"

	"github.com/contenthub/contenthub/internal/content"
	"github.com/go-chi/chi/v5"
)

// TemplateRequest represents template data
type TemplateRequest struct {
	Name   string `json:"name"`
	Locale string `json:"locale"`
	Body   string `json:"body"`
}

func (req TemplateRequest) input() content.TemplateInput {
	return content.TemplateInput{Name: req.Name, Locale: req.Locale, Body: req.Body}
}

// ListTemplates lists the templates of the actor's organization
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templateService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mapSlice(templates, newTemplateResponse))
}

// GetTemplate returns a template of the actor's organization
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.templateService.Get(r.Context(), chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newTemplateResponse(tpl))
}

// CreateTemplate creates a template
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tpl, err := h.templateService.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newTemplateResponse(tpl))
}

// UpdateTemplate updates a template
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tpl, err := h.templateService.Update(r.Context(), chi.URLParam(r, "templateID"), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newTemplateResponse(tpl))
}

// DeleteTemplate deletes a template
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.templateService.Delete(r.Context(), chi.URLParam(r, "templateID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
