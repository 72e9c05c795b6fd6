package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// 校验错误中使用json或form标签名，而不是结构体字段名
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(tagName)
	}
}

// tagName 返回字段的json标签名，没有时使用form标签名
func tagName(fld reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// validationDetails 将绑定错误转换为可读的描述
func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			details = append(details, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			details = append(details, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			details = append(details, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return details
}
