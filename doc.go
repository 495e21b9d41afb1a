// Package adaptor implements the library half of a search-appliance
// document-feed connector: an implementer supplies an Adaptor for one
// repository, and this package handles Appliance session management, SAML
// authentication and batch authorization, XML feed composition and
// delivery, and the scheduled/incremental push lifecycle around it.
//
// A minimal program looks like:
//
//	type myAdaptor struct{}
//
//	func (myAdaptor) Init(ctx context.Context, actx adaptor.AdaptorContext) error { return nil }
//	func (myAdaptor) Destroy()                                                   {}
//
//	func (myAdaptor) GetDocIds(ctx context.Context, pusher adaptor.DocIdPusher) error {
//		id, _ := adaptor.NewDocId("1001")
//		_, err := pusher.PushRecords(ctx, []adaptor.DocIdRecord{{DocId: id}}, nil)
//		return err
//	}
//
//	func (myAdaptor) GetDocContent(ctx context.Context, req adaptor.Request, resp adaptor.Response) error {
//		resp.SetContentType("text/plain")
//		_, err := resp.Writer().Write([]byte("hello, " + req.DocId().String()))
//		return err
//	}
//
//	func (myAdaptor) IsUserAuthorized(ctx context.Context, id adaptor.AuthnIdentity, ids []adaptor.DocId) (map[adaptor.DocId]adaptor.AuthzStatus, error) {
//		out := make(map[adaptor.DocId]adaptor.AuthzStatus, len(ids))
//		for _, d := range ids {
//			out[d] = adaptor.Permit
//		}
//		return out, nil
//	}
//
//	func main() {
//		if err := adaptor.Run(context.Background(), myAdaptor{}, "adaptor-config.yaml"); err != nil {
//			log.Fatal(err)
//		}
//	}
package adaptor
