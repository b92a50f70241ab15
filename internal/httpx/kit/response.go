// Package kit contains the shared HTTP response envelope, error taxonomy and
// paging helpers used by every handler.
package kit

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// APIVersion is reported in every response envelope.
const APIVersion = "1.0.0"

// CorrelationHeader carries the per-request correlation id.
const CorrelationHeader = "X-Correlation-ID"

// Meta is attached to every envelope.
type Meta struct {
	CorrelationID string `json:"correlationId"`
	Timestamp     string `json:"timestamp"`
	APIVersion    string `json:"apiVersion"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Envelope is the uniform response shape: exactly one of Data and Error is
// non-null.
type Envelope struct {
	Data  interface{} `json:"data"`
	Error *ErrorBody  `json:"error"`
	Meta  Meta        `json:"meta"`
}

// CorrelationID extracts the per-request correlation id set by the requestid
// middleware.
func CorrelationID(c *fiber.Ctx) string {
	rid := c.GetRespHeader(CorrelationHeader)
	return lo.Ternary(rid != "", rid, c.Get(CorrelationHeader))
}

func newMeta(c *fiber.Ctx) Meta {
	return Meta{
		CorrelationID: CorrelationID(c),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		APIVersion:    APIVersion,
	}
}

func envelope(c *fiber.Ctx, status int, data interface{}, errBody *ErrorBody) error {
	return c.Status(status).JSON(Envelope{Data: data, Error: errBody, Meta: newMeta(c)})
}

// OK sends a 200 response with data.
func OK(c *fiber.Ctx, data interface{}) error {
	return envelope(c, fiber.StatusOK, data, nil)
}

// Created sends a 201 response with data.
func Created(c *fiber.Ctx, data interface{}) error {
	return envelope(c, fiber.StatusCreated, data, nil)
}

// NoContent sends a 204 with an empty body.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Fail sends an enveloped error response.
func Fail(c *fiber.Ctx, status int, body *ErrorBody) error {
	return envelope(c, status, nil, body)
}
