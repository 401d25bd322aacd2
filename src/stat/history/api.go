package history

import (
	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig/apix"
	"github.com/jom-io/gorig/global/consts"
)

func Page(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	pageReq, err := apix.GetPageReq(ctx)
	if err != nil {
		return
	}

	data, e := S().Page(ctx, pageReq.Page, pageReq.Size)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}

func TimeRange(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	start, err := apix.GetParamInt64(ctx, "start", apix.Force)
	end, err := apix.GetParamInt64(ctx, "end", apix.Force)
	if err != nil {
		return
	}

	data, e := S().TimeRange(ctx, start, end)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}
