package servicebookv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "servicebook.v1.BookingsService"

const (
	BookingsService_CreateBooking_FullMethodName      = "/servicebook.v1.BookingsService/CreateBooking"
	BookingsService_GetBooking_FullMethodName         = "/servicebook.v1.BookingsService/GetBooking"
	BookingsService_ListBookings_FullMethodName       = "/servicebook.v1.BookingsService/ListBookings"
	BookingsService_ListBookingsByDate_FullMethodName = "/servicebook.v1.BookingsService/ListBookingsByDate"
	BookingsService_BookingStats_FullMethodName       = "/servicebook.v1.BookingsService/BookingStats"
	BookingsService_SetBookingStatus_FullMethodName   = "/servicebook.v1.BookingsService/SetBookingStatus"
	BookingsService_UpdateBooking_FullMethodName      = "/servicebook.v1.BookingsService/UpdateBooking"
	BookingsService_RescheduleBooking_FullMethodName  = "/servicebook.v1.BookingsService/RescheduleBooking"
	BookingsService_DeleteBooking_FullMethodName      = "/servicebook.v1.BookingsService/DeleteBooking"
	BookingsService_CheckAvailability_FullMethodName  = "/servicebook.v1.BookingsService/CheckAvailability"

	BookingsService_ListBookingSelections_FullMethodName  = "/servicebook.v1.BookingsService/ListBookingSelections"
	BookingsService_AddBookingSelection_FullMethodName    = "/servicebook.v1.BookingsService/AddBookingSelection"
	BookingsService_UpdateBookingSelection_FullMethodName = "/servicebook.v1.BookingsService/UpdateBookingSelection"
	BookingsService_RemoveBookingSelection_FullMethodName = "/servicebook.v1.BookingsService/RemoveBookingSelection"
)

type BookingsServiceServer interface {
	CreateBooking(context.Context, *CreateBookingRequest) (*BookingResponse, error)
	GetBooking(context.Context, *GetBookingRequest) (*BookingResponse, error)
	ListBookings(context.Context, *ListBookingsRequest) (*ListBookingsResponse, error)
	ListBookingsByDate(context.Context, *ListBookingsByDateRequest) (*ListBookingsByDateResponse, error)
	BookingStats(context.Context, *BookingStatsRequest) (*BookingStatsResponse, error)
	SetBookingStatus(context.Context, *SetBookingStatusRequest) (*BookingResponse, error)
	UpdateBooking(context.Context, *UpdateBookingRequest) (*BookingResponse, error)
	RescheduleBooking(context.Context, *RescheduleBookingRequest) (*BookingResponse, error)
	DeleteBooking(context.Context, *DeleteBookingRequest) (*BookingResponse, error)
	CheckAvailability(context.Context, *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error)
	ListBookingSelections(context.Context, *ListBookingSelectionsRequest) (*ListBookingSelectionsResponse, error)
	AddBookingSelection(context.Context, *AddBookingSelectionRequest) (*BookingResponse, error)
	UpdateBookingSelection(context.Context, *UpdateBookingSelectionRequest) (*BookingResponse, error)
	RemoveBookingSelection(context.Context, *RemoveBookingSelectionRequest) (*BookingResponse, error)
}

// UnimplementedBookingsServiceServer can be embedded to keep servers compiling when
// methods are added.
type UnimplementedBookingsServiceServer struct{}

func (UnimplementedBookingsServiceServer) CreateBooking(context.Context, *CreateBookingRequest) (*BookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateBooking not implemented")
}

func (UnimplementedBookingsServiceServer) GetBooking(context.Context, *GetBookingRequest) (*BookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBooking not implemented")
}

func (UnimplementedBookingsServiceServer) ListBookings(context.Context, *ListBookingsRequest) (*ListBookingsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListBookings not implemented")
}

func (UnimplementedBookingsServiceServer) ListBookingsByDate(context.Context, *ListBookingsByDateRequest) (*ListBookingsByDateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListBookingsByDate not implemented")
}

func (UnimplementedBookingsServiceServer) BookingStats(context.Context, *BookingStatsRequest) (*BookingStatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method BookingStats not implemented")
}

func (UnimplementedBookingsServiceServer) SetBookingStatus(context.Context, *SetBookingStatusRequest) (*BookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetBookingStatus not implemented")
}

func (UnimplementedBookingsServiceServer) UpdateBooking(context.Context, *UpdateBookingRequest) (*BookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateBooking not implemented")
}

func (UnimplementedBookingsServiceServer) RescheduleBooking(context.Context, *RescheduleBookingRequest) (*BookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RescheduleBooking not implemented")
}

func (UnimplementedBookingsServiceServer) DeleteBooking(context.Context, *DeleteBookingRequest) (*BookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteBooking not implemented")
}

func (UnimplementedBookingsServiceServer) CheckAvailability(context.Context, *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CheckAvailability not implemented")
}

func (UnimplementedBookingsServiceServer) ListBookingSelections(context.Context, *ListBookingSelectionsRequest) (*ListBookingSelectionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListBookingSelections not implemented")
}

func (UnimplementedBookingsServiceServer) AddBookingSelection(context.Context, *AddBookingSelectionRequest) (*BookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddBookingSelection not implemented")
}

func (UnimplementedBookingsServiceServer) UpdateBookingSelection(context.Context, *UpdateBookingSelectionRequest) (*BookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateBookingSelection not implemented")
}

func (UnimplementedBookingsServiceServer) RemoveBookingSelection(context.Context, *RemoveBookingSelectionRequest) (*BookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveBookingSelection not implemented")
}

func RegisterBookingsServiceServer(s grpc.ServiceRegistrar, srv BookingsServiceServer) {
	s.RegisterService(&BookingsService_ServiceDesc, srv)
}

func unaryHandler[Req, Resp any](fullMethod string, call func(BookingsServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var BookingsService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateBooking", Handler: unaryHandler(BookingsService_CreateBooking_FullMethodName, BookingsServiceServer.CreateBooking)},
		{MethodName: "GetBooking", Handler: unaryHandler(BookingsService_GetBooking_FullMethodName, BookingsServiceServer.GetBooking)},
		{MethodName: "ListBookings", Handler: unaryHandler(BookingsService_ListBookings_FullMethodName, BookingsServiceServer.ListBookings)},
		{MethodName: "ListBookingsByDate", Handler: unaryHandler(BookingsService_ListBookingsByDate_FullMethodName, BookingsServiceServer.ListBookingsByDate)},
		{MethodName: "BookingStats", Handler: unaryHandler(BookingsService_BookingStats_FullMethodName, BookingsServiceServer.BookingStats)},
		{MethodName: "SetBookingStatus", Handler: unaryHandler(BookingsService_SetBookingStatus_FullMethodName, BookingsServiceServer.SetBookingStatus)},
		{MethodName: "UpdateBooking", Handler: unaryHandler(BookingsService_UpdateBooking_FullMethodName, BookingsServiceServer.UpdateBooking)},
		{MethodName: "RescheduleBooking", Handler: unaryHandler(BookingsService_RescheduleBooking_FullMethodName, BookingsServiceServer.RescheduleBooking)},
		{MethodName: "DeleteBooking", Handler: unaryHandler(BookingsService_DeleteBooking_FullMethodName, BookingsServiceServer.DeleteBooking)},
		{MethodName: "CheckAvailability", Handler: unaryHandler(BookingsService_CheckAvailability_FullMethodName, BookingsServiceServer.CheckAvailability)},
		{MethodName: "ListBookingSelections", Handler: unaryHandler(BookingsService_ListBookingSelections_FullMethodName, BookingsServiceServer.ListBookingSelections)},
		{MethodName: "AddBookingSelection", Handler: unaryHandler(BookingsService_AddBookingSelection_FullMethodName, BookingsServiceServer.AddBookingSelection)},
		{MethodName: "UpdateBookingSelection", Handler: unaryHandler(BookingsService_UpdateBookingSelection_FullMethodName, BookingsServiceServer.UpdateBookingSelection)},
		{MethodName: "RemoveBookingSelection", Handler: unaryHandler(BookingsService_RemoveBookingSelection_FullMethodName, BookingsServiceServer.RemoveBookingSelection)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "servicebook/v1/bookings.json",
}

type BookingsServiceClient interface {
	CreateBooking(ctx context.Context, in *CreateBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error)
	GetBooking(ctx context.Context, in *GetBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error)
	ListBookings(ctx context.Context, in *ListBookingsRequest, opts ...grpc.CallOption) (*ListBookingsResponse, error)
	ListBookingsByDate(ctx context.Context, in *ListBookingsByDateRequest, opts ...grpc.CallOption) (*ListBookingsByDateResponse, error)
	BookingStats(ctx context.Context, in *BookingStatsRequest, opts ...grpc.CallOption) (*BookingStatsResponse, error)
	SetBookingStatus(ctx context.Context, in *SetBookingStatusRequest, opts ...grpc.CallOption) (*BookingResponse, error)
	UpdateBooking(ctx context.Context, in *UpdateBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error)
	RescheduleBooking(ctx context.Context, in *RescheduleBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error)
	DeleteBooking(ctx context.Context, in *DeleteBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error)
	CheckAvailability(ctx context.Context, in *CheckAvailabilityRequest, opts ...grpc.CallOption) (*CheckAvailabilityResponse, error)
	ListBookingSelections(ctx context.Context, in *ListBookingSelectionsRequest, opts ...grpc.CallOption) (*ListBookingSelectionsResponse, error)
	AddBookingSelection(ctx context.Context, in *AddBookingSelectionRequest, opts ...grpc.CallOption) (*BookingResponse, error)
	UpdateBookingSelection(ctx context.Context, in *UpdateBookingSelectionRequest, opts ...grpc.CallOption) (*BookingResponse, error)
	RemoveBookingSelection(ctx context.Context, in *RemoveBookingSelectionRequest, opts ...grpc.CallOption) (*BookingResponse, error)
}

type bookingsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingsServiceClient(cc grpc.ClientConnInterface) BookingsServiceClient {
	return &bookingsServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bookingsServiceClient) CreateBooking(ctx context.Context, in *CreateBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, BookingsService_CreateBooking_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) GetBooking(ctx context.Context, in *GetBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, BookingsService_GetBooking_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) ListBookings(ctx context.Context, in *ListBookingsRequest, opts ...grpc.CallOption) (*ListBookingsResponse, error) {
	return invoke[ListBookingsResponse](ctx, c.cc, BookingsService_ListBookings_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) ListBookingsByDate(ctx context.Context, in *ListBookingsByDateRequest, opts ...grpc.CallOption) (*ListBookingsByDateResponse, error) {
	return invoke[ListBookingsByDateResponse](ctx, c.cc, BookingsService_ListBookingsByDate_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) BookingStats(ctx context.Context, in *BookingStatsRequest, opts ...grpc.CallOption) (*BookingStatsResponse, error) {
	return invoke[BookingStatsResponse](ctx, c.cc, BookingsService_BookingStats_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) SetBookingStatus(ctx context.Context, in *SetBookingStatusRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, BookingsService_SetBookingStatus_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) UpdateBooking(ctx context.Context, in *UpdateBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, BookingsService_UpdateBooking_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) RescheduleBooking(ctx context.Context, in *RescheduleBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, BookingsService_RescheduleBooking_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) DeleteBooking(ctx context.Context, in *DeleteBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, BookingsService_DeleteBooking_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) CheckAvailability(ctx context.Context, in *CheckAvailabilityRequest, opts ...grpc.CallOption) (*CheckAvailabilityResponse, error) {
	return invoke[CheckAvailabilityResponse](ctx, c.cc, BookingsService_CheckAvailability_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) ListBookingSelections(ctx context.Context, in *ListBookingSelectionsRequest, opts ...grpc.CallOption) (*ListBookingSelectionsResponse, error) {
	return invoke[ListBookingSelectionsResponse](ctx, c.cc, BookingsService_ListBookingSelections_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) AddBookingSelection(ctx context.Context, in *AddBookingSelectionRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, BookingsService_AddBookingSelection_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) UpdateBookingSelection(ctx context.Context, in *UpdateBookingSelectionRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, BookingsService_UpdateBookingSelection_FullMethodName, in, opts)
}

func (c *bookingsServiceClient) RemoveBookingSelection(ctx context.Context, in *RemoveBookingSelectionRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, BookingsService_RemoveBookingSelection_FullMethodName, in, opts)
}
