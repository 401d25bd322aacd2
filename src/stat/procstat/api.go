package procstat

import (
	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig/apix"
	"github.com/jom-io/gorig/global/consts"
)

func Usage(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	pageReq, err := apix.GetPageReq(ctx)
	if err != nil {
		return
	}

	data, e := S().Page(ctx, pageReq.Page, pageReq.Size)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}

func Current(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	data, e := S().Current(ctx)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}
