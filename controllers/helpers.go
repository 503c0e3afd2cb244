package controllers

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/yashrajoria/shopswift-api/common/errors"
	"github.com/yashrajoria/shopswift-api/repository"
)

// TotalCountHeader carries the unpaginated size of list responses
const TotalCountHeader = "X-Total-Count"

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// respondError hands err to apperrors.ErrorMiddleware, which renders it
// once the handler chain unwinds.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// bindJSON decodes the body into req and reports binding failures as a
// validation error with one message per offending field.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, validationError(err))
		return false
	}
	return true
}

func validationError(err error) *apperrors.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation(map[string]string{"body": "must be valid JSON"})
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fieldMessage(fe)
	}
	return apperrors.Validation(fields)
}

// fieldPath drops the root struct name from the namespace, e.g.
// "PlaceOrderRequest.shippingAddress.city" -> "shippingAddress.city".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

// parsePaginationParams returns an empty Page, meaning everything, unless
// the caller asked for a page or a limit.
func parsePaginationParams(c *gin.Context) repository.Page {
	const MaxLimit = 100
	const DefaultPage = 1
	const DefaultLimit = 10

	page, hasPage := c.GetQuery("page")
	limit, hasLimit := c.GetQuery("limit")
	if !hasPage && !hasLimit {
		return repository.Page{}
	}

	pageInt := DefaultPage
	limitInt := DefaultLimit

	if p, err := strconv.Atoi(page); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(limit); err == nil && l > 0 {
		limitInt = l
		if limitInt > MaxLimit {
			limitInt = MaxLimit
		}
	}

	return repository.Page{Page: pageInt, Limit: limitInt}
}
